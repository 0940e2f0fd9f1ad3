package csvparser

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
)

func TestParseBytes(t *testing.T) {
	content := []byte("Agent_Number,Error_Type,isError\nA1,E100,TRUE\nA2,,FALSE\n")

	rs, err := ParseBytes("ack.csv", content, config.CSVSettings{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Agent_Number", "Error_Type", "isError"}, rs.Columns())
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, "E100", rs.Get(0, "Error_Type"))
	assert.Equal(t, "", rs.Get(1, "Error_Type"))
}

func TestParseBytesStripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Agent_Number\nA1\n")...)

	rs, err := ParseBytes("ack.csv", content, config.CSVSettings{})
	require.NoError(t, err)
	assert.True(t, rs.Has("Agent_Number"))
}

func TestParseBytesKeepsTextVerbatim(t *testing.T) {
	content := []byte("Policy,Amount\n00123,1.50\n")

	rs, err := ParseBytes("ack.csv", content, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, "00123", rs.Get(0, "Policy"))
	assert.Equal(t, "1.50", rs.Get(0, "Amount"))
}

func TestParseBytesHeaderOnly(t *testing.T) {
	rs, err := ParseBytes("ack.csv", []byte("A,B\n"), config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, 2, rs.Width())
}

func TestParseBytesEmpty(t *testing.T) {
	_, err := ParseBytes("ack.csv", []byte("  \n"), config.CSVSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrEmptyFile)
}

func TestParseBytesLongRow(t *testing.T) {
	_, err := ParseBytes("ack.csv", []byte("A,B\n1,2,3\n"), config.CSVSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrParse)
}

func TestParseBytesShortRowPadded(t *testing.T) {
	rs, err := ParseBytes("ack.csv", []byte("A,B,C\n1\n"), config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", ""}, rs.Row(0))
}

func TestParseBytesDelimiterAndTrim(t *testing.T) {
	settings := config.CSVSettings{Delimiter: "pipe", TrimValues: true}

	rs, err := ParseBytes("ack.csv", []byte("A|B\n x | y \n"), settings)
	require.NoError(t, err)
	assert.Equal(t, "x", rs.Get(0, "A"))
	assert.Equal(t, "y", rs.Get(0, "B"))
}

func TestParseBytesLatin1(t *testing.T) {
	// "Café" with é as 0xE9
	content := []byte("Name\nCaf\xe9\n")

	rs, err := ParseBytes("ack.csv", content, config.CSVSettings{Encoding: "ISO-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, "Café", rs.Get(0, "Name"))
}

func TestParseBytesUnsupportedEncoding(t *testing.T) {
	_, err := ParseBytes("ack.csv", []byte("A\n1\n"), config.CSVSettings{Encoding: "EBCDIC"})
	assert.ErrorIs(t, err, validation.ErrParse)
}

func TestCleanHeaders(t *testing.T) {
	got := CleanHeaders([]string{" A ", "", "A", "B", "A"})
	assert.Equal(t, []string{"A", "Column_2", "A.1", "B", "A.2"}, got)
}

func TestWriteRoundTrip(t *testing.T) {
	rs, err := recordset.FromRows([]string{"A", "B"}, [][]string{{"x,y", `q"uote`}, {"", "2"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rs))

	back, err := ParseBytes("out.csv", buf.Bytes(), config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, rs.Rows(), back.Rows())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ack.csv")
	require.NoError(t, os.WriteFile(path, []byte("A\n1\n"), 0o644))

	rs, err := Parse(path, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())

	_, err = Parse(filepath.Join(t.TempDir(), "missing.csv"), config.CSVSettings{})
	assert.Error(t, err)
}

func TestGetUniqueValues(t *testing.T) {
	rs, err := recordset.FromRows([]string{"Agent"}, [][]string{{"B"}, {"A"}, {"B"}, {" "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, GetUniqueValues(rs, "Agent"))
	assert.Nil(t, GetUniqueValues(rs, "Missing"))
}
