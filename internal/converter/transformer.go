// =============================================================================
// Ack File Processor - Record Transform Pipeline
// =============================================================================
//
// This module applies the fixed sequence of structural transforms to a parsed
// ack file. The order of the steps is significant:
//
//   1. Validate the input (EmptyFile / NoColumns / NoDataRows)
//   2. Drop internal pipeline columns
//   3. Materialise Source_Filename
//   4. COSIGN handling: clear property address, move Source_Filename
//   5. Materialise Client_Action
//   6. Error mapping (when a mapping table is configured)
//   7. General PII scrub (when requested)
//   8. Normalise the absence sentinel to an empty string
//
// No step reorders rows. Only step 4 reorders columns.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/mapping"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

const (
	ColumnErrorType              = "Error_Type"
	ColumnIsError                = "isError"
	ColumnTransactionReason      = "Transaction_Reason"
	ColumnClientAction           = "Client_Action"
	ColumnErrorMessage           = "Error_Message"
	ColumnSourceFilename         = "Source_Filename"
	ColumnOriginalContractNumber = "Original_Contract_Number"
	ColumnIncomingClientFilename = "incoming_client_filename"
	ColumnAgentNumber            = "Agent_Number"
	ColumnAgentName              = "Agent_Name"
)

// CosignAgent is the agent whose rows carry property address redaction.
const CosignAgent = "COSIGN"

// DroppedColumns are removed from every ack file.
var DroppedColumns = []string{
	"Transfer_Flag",
	"job_run_registration",
	"incoming_record_guid",
	"is_ipay",
	"Error_Job_Run",
	"Error_Source",
	"Error_Update_Datetime",
	"Genesis_Job_Run",
	"Standard_Job_Run",
}

// PropertyColumns are cleared on COSIGN rows.
var PropertyColumns = []string{
	"Property_Address",
	"Property_City",
	"Property_State_Code",
	"Property_Zip",
}

// CustomerPIIColumns are cleared when PII removal is enabled.
var CustomerPIIColumns = []string{
	"Customer_First_Name",
	"Customer_Address_1",
	"Customer_City",
	"Customer_State",
	"Customer_Zip_Code",
	"Customer_Phone",
	"Customer_Email",
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a single Transform call.
type Options struct {
	// SourceFilename is written to Source_Filename with ".csv" appended.
	// Empty clears the column.
	SourceFilename string

	// RemovePII clears the customer PII columns.
	RemovePII bool

	// Mapping is the error mapping table. Nil skips error mapping.
	Mapping *mapping.Table

	// File names the input in validation errors.
	File string
}

// TransformOutput carries the transformed records and what happened to them.
type TransformOutput struct {
	Records *recordset.RecordSet

	// Dropped lists the fixed columns that were present and removed.
	Dropped []string

	// CosignRows is the number of COSIGN rows whose property address was
	// cleared.
	CosignRows int

	// Mapping is the engine result, nil when no table was configured.
	Mapping *EngineResult
}

// =============================================================================
// PIPELINE
// =============================================================================

// Transform runs the pipeline on a copy of rs.
//
// RETURNS:
//   - The transformed output. The input record set is left untouched.
//   - A *validation.Error when the input is empty, has no columns or has no
//     data rows. Error mapping failures are not returned here; they are
//     reported in TransformOutput.Mapping.Err and the unmapped records are
//     kept.
func Transform(rs *recordset.RecordSet, opts Options) (*TransformOutput, error) {
	// STEP 1: validate
	if err := validation.CheckRecordSet(opts.File, rs); err != nil {
		return nil, err
	}

	records, err := rs.Clone()
	if err != nil {
		return nil, validation.NewError(validation.KindParseError, opts.File, err.Error(), err)
	}

	out := &TransformOutput{Records: records}

	// STEP 2: drop fixed columns
	out.Dropped = records.Drop(DroppedColumns...)

	// STEP 3: Source_Filename
	if err := materializeSourceFilename(records, opts.SourceFilename); err != nil {
		return nil, validation.NewError(validation.KindParseError, opts.File, err.Error(), err)
	}

	// STEP 4: COSIGN handling
	if hasCosign(records) {
		out.CosignRows = clearCosignProperty(records)

		src := records.Index(ColumnSourceFilename)
		incoming := records.Index(ColumnIncomingClientFilename)
		if src >= 0 && incoming >= 0 && src > incoming {
			if err := records.MoveBefore(ColumnSourceFilename, ColumnIncomingClientFilename); err != nil {
				return nil, validation.NewError(validation.KindParseError, opts.File, err.Error(), err)
			}
		}
	}

	// STEP 5: Client_Action
	if !records.Has(ColumnClientAction) {
		if err := insertAfterOrAppend(records, ColumnErrorMessage, ColumnClientAction, ""); err != nil {
			return nil, validation.NewError(validation.KindParseError, opts.File, err.Error(), err)
		}
	}

	// STEP 6: error mapping
	if opts.Mapping != nil {
		result := ApplyErrorMapping(records, opts.Mapping)
		out.Mapping = &result
		records = result.Records
		out.Records = records
	}

	// STEP 7: PII scrub
	if opts.RemovePII {
		for _, col := range CustomerPIIColumns {
			records.Fill(col, "")
		}
	}

	// STEP 8: normalise absence sentinel
	records.MapCells(normalizeCell)

	return out, nil
}

// materializeSourceFilename inserts or overwrites the Source_Filename column.
func materializeSourceFilename(rs *recordset.RecordSet, sourceFilename string) error {
	value := ""
	if sourceFilename != "" {
		value = sourceFilename + ".csv"
	}

	if rs.Has(ColumnSourceFilename) {
		rs.Fill(ColumnSourceFilename, value)
		return nil
	}

	return insertAfterOrAppend(rs, ColumnOriginalContractNumber, ColumnSourceFilename, value)
}

// insertAfterOrAppend adds a column after anchor, or last when anchor is
// absent.
func insertAfterOrAppend(rs *recordset.RecordSet, anchor, name, fill string) error {
	if rs.Has(anchor) {
		return rs.InsertAfter(anchor, name, fill)
	}
	return rs.Append(name, fill)
}

// hasCosign reports whether any Agent_Number is COSIGN in any case.
func hasCosign(rs *recordset.RecordSet) bool {
	for _, agent := range rs.Values(ColumnAgentNumber) {
		if strings.ToUpper(agent) == CosignAgent {
			return true
		}
	}
	return false
}

// clearCosignProperty blanks the property columns on COSIGN rows only.
func clearCosignProperty(rs *recordset.RecordSet) int {
	cleared := 0
	for i := 0; i < rs.Len(); i++ {
		if !strings.EqualFold(rs.Get(i, ColumnAgentNumber), CosignAgent) {
			continue
		}
		for _, col := range PropertyColumns {
			rs.Set(i, col, "")
		}
		cleared++
	}
	return cleared
}

// normalizeCell maps the textual absence markers written by spreadsheet
// exports to an empty string. Only whole-cell markers are replaced.
func normalizeCell(value string) string {
	switch value {
	case "nan", "NaN", "NAN":
		return ""
	}
	return value
}
