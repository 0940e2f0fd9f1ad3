package converter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ack-file-processor/internal/mapping"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
)

func mustRecords(t *testing.T, columns []string, rows ...[]string) *recordset.RecordSet {
	t.Helper()
	rs, err := recordset.FromRows(columns, rows)
	require.NoError(t, err)
	return rs
}

func mustTable(t *testing.T, headers []string, rows ...[]string) *mapping.Table {
	t.Helper()
	table, _, err := mapping.Load(headers, rows)
	require.NoError(t, err)
	return table
}

var mappingHeaders = []string{"Error_Type", "Client_Error_Type", "Client Action", "file_type_2"}

func TestApplyErrorMappingComposite(t *testing.T) {
	rs := mustRecords(t,
		[]string{"Error_Type", "isError", "Transaction_Reason", "Client_Action"},
		[]string{"ERR1", "TRUE", "1", ""},
	)
	table := mustTable(t, mappingHeaders, []string{"ERR1", "E1-Mapped", "Resubmit", "Sales"})

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, "E1-Mapped", res.Records.Get(0, "Error_Type"))
	assert.Equal(t, "Resubmit", res.Records.Get(0, "Client_Action"))
	assert.Equal(t, 1, res.Report.ComposedMatches)
	assert.Equal(t, []Outcome{ComposedMatch}, res.Outcomes)

	// input untouched
	assert.Equal(t, "ERR1", rs.Get(0, "Error_Type"))
}

func TestApplyErrorMappingCompositeTakesPrecedence(t *testing.T) {
	rs := mustRecords(t,
		[]string{"Error_Type", "isError", "Transaction_Reason", "Client_Action"},
		[]string{"ERR1", "TRUE", "2", ""},
	)
	table := mustTable(t, mappingHeaders,
		[]string{"ERR1", "Composite", "From composite", "Payments"},
		[]string{"ERR1", "Simple", "From simple", ""},
	)

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, "Composite", res.Records.Get(0, "Error_Type"))
	assert.Equal(t, "From composite", res.Records.Get(0, "Client_Action"))
	assert.Equal(t, 1, res.Report.ComposedMatches)
	assert.Equal(t, 0, res.Report.SimpleMatches)
}

func TestApplyErrorMappingFallbackUsesOriginalErrorType(t *testing.T) {
	// Row 0 matches tier 1 and becomes "E2". Row 1 is E2 originally and only
	// matches tier 2. Neither must see the other's rewritten value.
	rs := mustRecords(t,
		[]string{"Error_Type", "isError", "Transaction_Reason", "Client_Action"},
		[]string{"E1", "TRUE", "3", ""},
		[]string{"E2", "TRUE", "3", ""},
	)
	table := mustTable(t, mappingHeaders,
		[]string{"E1", "E2", "Cancel fix", "Cancels"},
		[]string{"E2", "Mapped E2", "E2 fix", ""},
	)

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, "E2", res.Records.Get(0, "Error_Type"))
	assert.Equal(t, "Cancel fix", res.Records.Get(0, "Client_Action"))
	assert.Equal(t, "Mapped E2", res.Records.Get(1, "Error_Type"))
	assert.Equal(t, []Outcome{ComposedMatch, SimpleMatch}, res.Outcomes)
}

func TestApplyErrorMappingWithoutFileType2CoversAllErrorRows(t *testing.T) {
	rs := mustRecords(t,
		[]string{"Error_Type", "isError", "Transaction_Reason", "Client_Action"},
		[]string{"E1", "TRUE", "1", ""},
		[]string{"E1", "true", "2", ""},
		[]string{"E1", "FALSE", "2", ""},
	)
	table := mustTable(t, mappingHeaders[:3], []string{"E1", "Mapped", "Fix"})

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, 2, res.Report.TotalErrorRows)
	assert.Equal(t, 2, res.Report.SimpleMatches)
	assert.Equal(t, 0, res.Report.ComposedMatches)
	assert.Equal(t, "Mapped", res.Records.Get(0, "Error_Type"))
	assert.Equal(t, "Mapped", res.Records.Get(1, "Error_Type"))
	assert.Equal(t, "E1", res.Records.Get(2, "Error_Type"))
}

func TestApplyErrorMappingWithoutTransactionReason(t *testing.T) {
	rs := mustRecords(t,
		[]string{"Error_Type", "isError"},
		[]string{"E1", "TRUE"},
	)
	table := mustTable(t, mappingHeaders,
		[]string{"E1", "Composite", "A", "Sales"},
		[]string{"E1", "Simple", "B", ""},
	)

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, "Simple", res.Records.Get(0, "Error_Type"))
	assert.Equal(t, []string{"Error_Type", "isError"}, res.Records.Columns())
}

func TestApplyErrorMappingNonErrorRowsUnchanged(t *testing.T) {
	columns := []string{"Error_Type", "isError", "Transaction_Reason", "Client_Action", "Note"}
	rows := [][]string{
		{"E1", "FALSE", "1", "keep", " spaced "},
		{"E1", "", "1", "", "nan"},
		{"E1", "TRUE ", "1", "x", "y"},
		{"E1", "TRUE", "1", "", ""},
	}
	rs := mustRecords(t, columns, rows...)
	table := mustTable(t, mappingHeaders, []string{"E1", "Mapped", "Fix", "Sales"})

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, rows[i], res.Records.Row(i), "row %d", i)
	}
	assert.Equal(t, "Mapped", res.Records.Get(3, "Error_Type"))
}

func TestApplyErrorMappingUnmatched(t *testing.T) {
	columns := []string{"Error_Type", "isError"}
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{fmt.Sprintf("X%02d", i), "TRUE"})
	}
	rows = append(rows, []string{"X00", "TRUE"}, []string{"E1", "TRUE"})

	rs := mustRecords(t, columns, rows...)
	table := mustTable(t, mappingHeaders[:3], []string{"E1", "Mapped", "Fix"})

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)

	assert.Equal(t, 14, res.Report.TotalErrorRows)
	assert.Equal(t, 1, res.Report.MappedCount())
	assert.Len(t, res.Report.Unmatched, 12)
	assert.Equal(t, "X00", res.Report.Unmatched[0])
	assert.Len(t, res.Report.Capped(), MaxUnmatchedDisplay)
	assert.Contains(t, res.Report.Display(), "...")
}

func TestApplyErrorMappingMissingColumnsIsNoOp(t *testing.T) {
	rs := mustRecords(t, []string{"Error_Type"}, []string{"E1"})
	table := mustTable(t, mappingHeaders[:3], []string{"E1", "Mapped", "Fix"})

	res := ApplyErrorMapping(rs, table)
	assert.NoError(t, res.Err)
	assert.True(t, res.Report.Skipped)
	assert.Same(t, rs, res.Records)
	assert.Equal(t, "E1", res.Records.Get(0, "Error_Type"))
}

func TestApplyErrorMappingWithoutClientAction(t *testing.T) {
	rs := mustRecords(t, []string{"Error_Type", "isError"}, []string{"E1", "TRUE"})
	table := mustTable(t, mappingHeaders[:3], []string{"E1", "Mapped", "Fix"})

	res := ApplyErrorMapping(rs, table)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"Error_Type", "isError"}, res.Records.Columns())
	assert.Equal(t, "Mapped", res.Records.Get(0, "Error_Type"))
}

func TestApplyErrorMappingRecoversFromPanic(t *testing.T) {
	orig := translateReason
	translateReason = func(string) string { panic("malformed reason") }
	t.Cleanup(func() { translateReason = orig })

	rs := mustRecords(t,
		[]string{"Error_Type", "isError", "Transaction_Reason", "Client_Action"},
		[]string{"ERR1", "TRUE", "1", ""},
		[]string{"ERR2", "FALSE", "2", "keep"},
	)
	table := mustTable(t, mappingHeaders, []string{"ERR1", "E1-Mapped", "Resubmit", "Sales"})

	var res EngineResult
	require.NotPanics(t, func() { res = ApplyErrorMapping(rs, table) })

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "malformed reason")
	assert.Same(t, rs, res.Records)
	assert.Equal(t, [][]string{{"ERR1", "TRUE", "1", ""}, {"ERR2", "FALSE", "2", "keep"}}, rs.Rows())
	assert.Zero(t, res.Report.MappedCount())
}

func TestApplyErrorMappingCloneFailure(t *testing.T) {
	orig := cloneRecords
	cloneRecords = func(*recordset.RecordSet) (*recordset.RecordSet, error) {
		return nil, errors.New("copy failed")
	}
	t.Cleanup(func() { cloneRecords = orig })

	rs := mustRecords(t, []string{"Error_Type", "isError"}, []string{"ERR1", "TRUE"})
	table := mustTable(t, mappingHeaders, []string{"ERR1", "E1-Mapped", "Resubmit", ""})

	res := ApplyErrorMapping(rs, table)
	assert.ErrorContains(t, res.Err, "copy failed")
	assert.Same(t, rs, res.Records)
	assert.Equal(t, "ERR1", rs.Get(0, "Error_Type"))
}

func TestCoverageReportDisplay(t *testing.T) {
	r := CoverageReport{Unmatched: []string{"A", "B"}}
	assert.Equal(t, "A, B", r.Display())
	assert.Equal(t, "unmatched", Unmatched.String())
	assert.Equal(t, "composed", ComposedMatch.String())
	assert.Equal(t, "simple", SimpleMatch.String())
}
