package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/xlsxparser"
)

var fullHeaders = []string{"Error_Type", "Client_Error_Type", "Client Action", "file_type_2"}

func TestLoadDropsBlankAndDuplicateRows(t *testing.T) {
	rows := [][]string{
		{"E100", "Invalid Policy", "Resubmit", "Sales"},
		{"   ", "Ignored", "Ignored", ""},
		{"E100", "Invalid Policy", "Resubmit", "Sales"},
		{"E200", "Duplicate", "None", ""},
	}

	table, stats, err := Load(fullHeaders, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, stats.DroppedBlank)
	assert.Equal(t, 1, stats.DroppedDupes)
	assert.True(t, stats.HasFileType2)
	assert.Equal(t, 1, stats.CompositeKeys)
	assert.Equal(t, 2, stats.SimpleKeys)
	assert.Equal(t, []string{"Sales"}, stats.FileTypes)
}

func TestLoadTrimsValues(t *testing.T) {
	rows := [][]string{{" E100 ", " Mapped ", " Fix it ", " Sales "}}

	table, _, err := Load(fullHeaders, rows)
	require.NoError(t, err)

	rule, ok := table.LookupComposite("E100", "Sales")
	require.True(t, ok)
	assert.Equal(t, Rule{ErrorType: "E100", ClientErrorType: "Mapped", ClientAction: "Fix it", FileType2: "Sales"}, rule)
}

func TestLoadMissingColumns(t *testing.T) {
	table, _, err := Load([]string{"Error_Type", "file_type_2"}, nil)

	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrMissingColumns)

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"Client_Error_Type", "Client Action"}, missing.Columns)
}

func TestLoadWithoutFileType2(t *testing.T) {
	rows := [][]string{{"E100", "Mapped", "Fix"}}

	table, _, err := Load(fullHeaders[:3], rows)
	require.NoError(t, err)

	assert.False(t, table.HasFileType2())
	_, ok := table.LookupSimple("E100")
	assert.True(t, ok)
}

func TestIndexesAreLastOneWins(t *testing.T) {
	rows := [][]string{
		{"E100", "First", "A1", "Sales"},
		{"E100", "Second", "A2", "Sales"},
	}

	table, _, err := Load(fullHeaders, rows)
	require.NoError(t, err)

	composite, _ := table.LookupComposite("E100", "Sales")
	simple, _ := table.LookupSimple("E100")
	assert.Equal(t, "Second", composite.ClientErrorType)
	assert.Equal(t, "Second", simple.ClientErrorType)
}

func TestLookupIsCaseSensitive(t *testing.T) {
	table, _, err := Load(fullHeaders, [][]string{{"E100", "Mapped", "Fix", "Sales"}})
	require.NoError(t, err)

	_, ok := table.LookupSimple("e100")
	assert.False(t, ok)
	_, ok = table.LookupComposite("E100", "sales")
	assert.False(t, ok)
}

func TestLoadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	content := "Error_Type,Client_Error_Type,Client Action\nE100,Mapped,Fix\n,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, stats, err := LoadFile(path, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.False(t, stats.HasFileType2)
}

func TestLoadFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.xlsx")
	require.NoError(t, xlsxparser.WriteTable(path, fullHeaders, [][]string{
		{"E100", "Mapped", "Fix", "Payments"},
		{"E200", "Other", "Call"},
	}))

	table, _, err := LoadFile(path, config.CSVSettings{})
	require.NoError(t, err)

	rule, ok := table.LookupComposite("E100", "Payments")
	require.True(t, ok)
	assert.Equal(t, "Mapped", rule.ClientErrorType)

	rule, ok = table.LookupSimple("E200")
	require.True(t, ok)
	assert.Equal(t, "", rule.FileType2)
}

func TestLoadFileMissing(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "none.csv"), config.CSVSettings{})
	assert.Error(t, err)
}
