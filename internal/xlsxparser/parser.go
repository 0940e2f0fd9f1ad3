// =============================================================================
// Ack File Processor - XLSX Table Parser
// =============================================================================
//
// This module reads lookup tables maintained in Excel: the error mapping
// table and the client contact list. Both are plain header-plus-rows sheets;
// interpretation of the columns happens in the mapping and directory
// packages.
//
// SHEET STRUCTURE:
//   Row 1 holds the headers. Data starts on row 2. Blank rows are skipped.
//
//   | Error_Type | Client_Error_Type   | Client Action        | file_type_2 |
//   |------------|---------------------|----------------------|-------------|
//   | E100       | Invalid Policy      | Correct and resubmit | Sales       |
//   | E200       | Duplicate Record    | No action required   |             |
//
// CUSTOMIZATION:
//   - Pass a sheet name to ReadTable to read something other than the first
//     sheet.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
)

// ReadTable reads a sheet into a raw table.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//   - sheet: The sheet to read. Empty selects the first sheet.
//
// RETURNS:
//   - The table with cleaned headers and rows padded to the header width.
//   - An error if the workbook cannot be opened or the sheet is missing.
func ReadTable(path, sheet string) (*csvparser.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	if len(rows) == 0 {
		return &csvparser.Table{}, nil
	}

	// excelize drops trailing empty cells, so headers define the width.
	table := &csvparser.Table{Headers: csvparser.CleanHeaders(rows[0])}
	width := len(table.Headers)

	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}

		values := make([]string, width)
		for i := 0; i < width && i < len(row); i++ {
			values[i] = row[i]
		}
		table.Rows = append(table.Rows, values)
	}

	return table, nil
}

// WriteTable writes headers and rows to a new workbook. It is used to produce
// template mapping tables and in tests.
func WriteTable(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	write := func(rowIndex int, values []string) error {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIndex)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(1, headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range rows {
		if err := write(i+2, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f.SaveAs(path)
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
