// =============================================================================
// Ack File Processor - Error Mapping Engine
// =============================================================================
//
// This module rewrites error rows of an ack file using the client mapping
// table. Matching happens in two tiers:
//
//   TIER 1 (composite): Error_Type + "|" + translated Transaction_Reason.
//                       Runs only when the record set has Transaction_Reason
//                       and the mapping table has a file_type_2 column.
//   TIER 2 (simple):    Error_Type alone, for error rows tier 1 left
//                       unmatched. When tier 1 does not run, tier 2 covers
//                       every error row.
//
// On a match, Error_Type is replaced with the client error type and
// Client_Action (when present) with the client action. Tier 2 always looks
// up the Error_Type value captured before any rewrite.
//
// Only rows whose isError equals "TRUE" (any case) are touched. Matching is
// exact and case-sensitive.
//
// =============================================================================

package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/mapping"
	"github.com/ginjaninja78/ack-file-processor/internal/reason"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
)

// MaxUnmatchedDisplay caps how many unmatched error types are shown.
const MaxUnmatchedDisplay = 10

// Engine hooks, replaced in tests to exercise the failure path.
var (
	translateReason = reason.Translate
	cloneRecords    = (*recordset.RecordSet).Clone
)

// Outcome records how a single error row was resolved.
type Outcome int

const (
	Unmatched Outcome = iota
	ComposedMatch
	SimpleMatch
)

func (o Outcome) String() string {
	switch o {
	case ComposedMatch:
		return "composed"
	case SimpleMatch:
		return "simple"
	default:
		return "unmatched"
	}
}

// =============================================================================
// COVERAGE REPORT
// =============================================================================

// CoverageReport summarises one run of the engine.
type CoverageReport struct {
	// TotalErrorRows is the number of rows with isError = TRUE.
	TotalErrorRows int

	// ComposedMatches and SimpleMatches count rows resolved by each tier.
	ComposedMatches int
	SimpleMatches   int

	// Unmatched holds the distinct original Error_Type values that matched
	// neither tier, in first-seen order.
	Unmatched []string

	// Skipped is set when the record set lacks Error_Type or isError.
	Skipped bool
}

// MappedCount returns the number of error rows resolved by either tier.
func (r CoverageReport) MappedCount() int {
	return r.ComposedMatches + r.SimpleMatches
}

// Capped returns at most MaxUnmatchedDisplay unmatched error types.
func (r CoverageReport) Capped() []string {
	if len(r.Unmatched) <= MaxUnmatchedDisplay {
		return r.Unmatched
	}
	return r.Unmatched[:MaxUnmatchedDisplay]
}

// Display renders the unmatched list for log output.
func (r CoverageReport) Display() string {
	text := strings.Join(r.Capped(), ", ")
	if len(r.Unmatched) > MaxUnmatchedDisplay {
		text += "..."
	}
	return text
}

// =============================================================================
// ENGINE
// =============================================================================

// EngineResult is the outcome of ApplyErrorMapping. Records is always
// usable: on failure it is the original, unmodified input.
type EngineResult struct {
	Records  *recordset.RecordSet
	Report   CoverageReport
	Outcomes []Outcome
	Err      error
}

// ApplyErrorMapping applies the mapping table to the error rows of rs.
//
// The input is never modified. A missing Error_Type or isError column makes
// the call a no-op with Report.Skipped set. Internal failures, including
// panics, are reported in Err alongside the original record set.
func ApplyErrorMapping(rs *recordset.RecordSet, table *mapping.Table) (result EngineResult) {
	result.Records = rs

	if rs == nil || table == nil || !rs.Has(ColumnErrorType) || !rs.Has(ColumnIsError) {
		result.Report.Skipped = true
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = EngineResult{
				Records: rs,
				Report:  CoverageReport{TotalErrorRows: result.Report.TotalErrorRows},
				Err:     fmt.Errorf("error mapping aborted: %v", r),
			}
		}
	}()

	if err := rs.Validate(); err != nil {
		result.Err = fmt.Errorf("error mapping aborted: %w", err)
		return result
	}

	out, err := cloneRecords(rs)
	if err != nil {
		result.Err = fmt.Errorf("error mapping aborted: %w", err)
		return result
	}

	// Transient per-row state lives beside the record set, never in it.
	var errorRows []int
	for i := 0; i < out.Len(); i++ {
		if strings.EqualFold(out.Get(i, ColumnIsError), "TRUE") {
			errorRows = append(errorRows, i)
		}
	}

	original := make([]string, len(errorRows))
	for n, row := range errorRows {
		original[n] = out.Get(row, ColumnErrorType)
	}

	outcomes := make([]Outcome, len(errorRows))
	hasAction := out.Has(ColumnClientAction)

	apply := func(row int, rule mapping.Rule) {
		out.Set(row, ColumnErrorType, rule.ClientErrorType)
		if hasAction {
			out.Set(row, ColumnClientAction, rule.ClientAction)
		}
	}

	report := CoverageReport{TotalErrorRows: len(errorRows)}

	if out.Has(ColumnTransactionReason) && table.HasFileType2() {
		for n, row := range errorRows {
			reasonText := translateReason(out.Get(row, ColumnTransactionReason))
			if rule, ok := table.LookupComposite(original[n], reasonText); ok {
				apply(row, rule)
				outcomes[n] = ComposedMatch
				report.ComposedMatches++
			}
		}
	}

	seen := make(map[string]bool)
	for n, row := range errorRows {
		if outcomes[n] == ComposedMatch {
			continue
		}
		if rule, ok := table.LookupSimple(original[n]); ok {
			apply(row, rule)
			outcomes[n] = SimpleMatch
			report.SimpleMatches++
			continue
		}
		if !seen[original[n]] {
			seen[original[n]] = true
			report.Unmatched = append(report.Unmatched, original[n])
		}
	}

	return EngineResult{Records: out, Report: report, Outcomes: outcomes}
}
