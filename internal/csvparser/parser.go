// =============================================================================
// Ack File Processor - CSV Parser Module
// =============================================================================
//
// This module reads ack files, mapping tables and client directories from CSV,
// and writes corrected ack files back out. Every cell is kept as text; no
// numeric or date inference happens here.
//
// FEATURES:
//   - Configurable delimiter (comma, pipe, tab, semicolon)
//   - Encoding conversion for ISO-8859-1 / Windows-1252 exports
//   - UTF-8 byte order mark removal
//   - Header cleanup (trimming, placeholder names, duplicate suffixes)
//   - Typed validation errors (EmptyFile, ParseError)
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Table is a raw header plus data rows, used for lookup tables that are
// interpreted by name rather than carried through the pipeline.
type Table struct {
	// Headers contains the cleaned column headers.
	Headers []string

	// Rows contains the data rows, each padded to len(Headers).
	Rows [][]string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads an ack CSV file into a RecordSet.
func Parse(filePath string, settings config.CSVSettings) (*recordset.RecordSet, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return ParseBytes(filepath.Base(filePath), content, settings)
}

// ParseBytes parses in-memory CSV content. name is used in error messages.
//
// RETURNS:
//   - The parsed RecordSet. A header-only file yields zero rows, not an error;
//     callers decide whether that is acceptable.
//   - A *validation.Error of kind EmptyFile or ParseError on failure.
func ParseBytes(name string, content []byte, settings config.CSVSettings) (*recordset.RecordSet, error) {
	table, err := ReadTable(name, content, settings)
	if err != nil {
		return nil, err
	}

	rs, err := recordset.FromRows(table.Headers, table.Rows)
	if err != nil {
		return nil, validation.NewError(validation.KindParseError, name, err.Error(), err)
	}

	return rs, nil
}

// ReadTable parses CSV content into a raw Table.
func ReadTable(name string, content []byte, settings config.CSVSettings) (*Table, error) {
	if err := validation.CheckContent(name, content); err != nil {
		return nil, err
	}

	reader, err := decodingReader(content, settings.Encoding)
	if err != nil {
		return nil, validation.NewError(validation.KindParseError, name, err.Error(), err)
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, validation.NewError(validation.KindParseError, name, err.Error(), err)
	}

	if len(allRows) == 0 {
		return nil, validation.NewError(validation.KindEmptyFile, name, "", nil)
	}

	headers := CleanHeaders(allRows[0])
	if len(headers) == 1 && allRows[0][0] == "" {
		headers = nil
	}

	rows, err := extractDataRows(allRows[1:], len(headers), settings.TrimValues)
	if err != nil {
		return nil, validation.NewError(validation.KindParseError, name, err.Error(), err)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// ReadTableFile reads a CSV file into a raw Table.
func ReadTableFile(filePath string, settings config.CSVSettings) (*Table, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return ReadTable(filepath.Base(filePath), content, settings)
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Row length is checked against the header in extractDataRows so the
	// error can name the row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = settings.TrimValues
}

// decodingReader strips a UTF-8 BOM and converts legacy encodings to UTF-8.
func decodingReader(content []byte, enc string) (io.Reader, error) {
	var decoder encoding.Encoding

	switch strings.ToUpper(strings.ReplaceAll(enc, "_", "-")) {
	case "", "UTF-8", "UTF8":
		reader := bufio.NewReader(bytes.NewReader(content))
		if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
			_, _ = reader.Discard(len(byteOrderMark))
		}
		return reader, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		decoder = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		decoder = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}

	return transform.NewReader(bytes.NewReader(content), decoder.NewDecoder()), nil
}

// CleanHeaders trims header names, names blank headers by position and
// suffixes repeated names (".1", ".2", ...) so every column is addressable.
func CleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)

		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		if n, dup := seen[header]; dup {
			seen[header] = n + 1
			header = fmt.Sprintf("%s.%d", header, n+1)
		} else {
			seen[header] = 0
		}

		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows pads rows to the header width and drops blank rows.
func extractDataRows(rawRows [][]string, width int, trim bool) ([][]string, error) {
	dataRows := make([][]string, 0, len(rawRows))

	for i, row := range rawRows {
		if isRowEmpty(row) {
			continue
		}

		if len(row) > width {
			// Trailing empty cells from a dangling delimiter are tolerated.
			extra := row[width:]
			if !isRowEmpty(extra) {
				return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+2, width, len(row))
			}
			row = row[:width]
		}

		values := make([]string, width)
		for col := range row {
			if trim {
				values[col] = strings.TrimSpace(row[col])
			} else {
				values[col] = row[col]
			}
		}

		dataRows = append(dataRows, values)
	}

	return dataRows, nil
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// WRITER
// =============================================================================

// Write serialises a RecordSet as UTF-8 CSV with a header row.
func Write(w io.Writer, rs *recordset.RecordSet) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(rs.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < rs.Len(); i++ {
		if err := writer.Write(rs.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetUniqueValues returns the distinct values of a column in first-seen order,
// skipping blanks.
func GetUniqueValues(rs *recordset.RecordSet, header string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, value := range rs.Values(header) {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		unique = append(unique, value)
	}

	return unique
}
