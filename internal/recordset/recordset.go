// =============================================================================
// Ack File Processor - Record Set
// =============================================================================
//
// A RecordSet is one parsed ack file held entirely in memory: an ordered list
// of column names plus rows of string cells. Column order is part of the
// output layout, so every structural edit goes through a named helper
// (InsertAfter, MoveBefore, Drop) instead of index arithmetic at call sites.
//
// INVARIANTS:
//   - Every row has exactly len(columns) cells.
//   - Column names are unique.
//   - Cells are plain strings; "absent" is the empty string.
//
// =============================================================================

package recordset

import (
	"errors"
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// ErrColumnExists is returned when a column would be added twice.
var ErrColumnExists = errors.New("column already exists")

// ErrColumnNotFound is returned when an anchor or target column is missing.
var ErrColumnNotFound = errors.New("column not found")

// RecordSet is an ordered set of records sharing a single column schema.
type RecordSet struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// New creates an empty RecordSet with the given columns.
func New(columns []string) (*RecordSet, error) {
	rs := &RecordSet{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(rs.columns, columns)

	for i, name := range rs.columns {
		if _, dup := rs.index[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, name)
		}
		rs.index[name] = i
	}

	return rs, nil
}

// FromRows builds a RecordSet from a header and data rows.
// Short rows are padded with empty cells; long rows are rejected.
func FromRows(columns []string, rows [][]string) (*RecordSet, error) {
	rs, err := New(columns)
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if err := rs.AddRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	return rs, nil
}

// AddRow appends a row, padding it to the column count.
func (rs *RecordSet) AddRow(values []string) error {
	if len(values) > len(rs.columns) {
		return fmt.Errorf("row has %d cells but only %d columns", len(values), len(rs.columns))
	}

	row := make([]string, len(rs.columns))
	copy(row, values)
	rs.rows = append(rs.rows, row)

	return nil
}

// Clone returns an independent deep copy.
func (rs *RecordSet) Clone() (*RecordSet, error) {
	var rows [][]string
	if err := deepcopy.Copy(&rows, rs.rows); err != nil {
		return nil, fmt.Errorf("failed to copy rows: %w", err)
	}

	clone, err := New(rs.columns)
	if err != nil {
		return nil, err
	}
	clone.rows = rows

	return clone, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Columns returns a copy of the column names in order.
func (rs *RecordSet) Columns() []string {
	out := make([]string, len(rs.columns))
	copy(out, rs.columns)
	return out
}

// Len returns the number of data rows.
func (rs *RecordSet) Len() int {
	return len(rs.rows)
}

// Width returns the number of columns.
func (rs *RecordSet) Width() int {
	return len(rs.columns)
}

// Has reports whether the column exists.
func (rs *RecordSet) Has(name string) bool {
	_, ok := rs.index[name]
	return ok
}

// Index returns the position of a column, or -1.
func (rs *RecordSet) Index(name string) int {
	if i, ok := rs.index[name]; ok {
		return i
	}
	return -1
}

// Get returns a cell value. Missing columns read as "".
func (rs *RecordSet) Get(row int, column string) string {
	i, ok := rs.index[column]
	if !ok {
		return ""
	}
	return rs.rows[row][i]
}

// Set writes a cell value. Writes to missing columns are ignored.
func (rs *RecordSet) Set(row int, column, value string) {
	if i, ok := rs.index[column]; ok {
		rs.rows[row][i] = value
	}
}

// Row returns a copy of a row's cells in column order.
func (rs *RecordSet) Row(i int) []string {
	out := make([]string, len(rs.rows[i]))
	copy(out, rs.rows[i])
	return out
}

// Rows returns a copy of all rows.
func (rs *RecordSet) Rows() [][]string {
	out := make([][]string, len(rs.rows))
	for i := range rs.rows {
		out[i] = rs.Row(i)
	}
	return out
}

// Values returns every value of a column in row order, or nil if absent.
func (rs *RecordSet) Values(column string) []string {
	i, ok := rs.index[column]
	if !ok {
		return nil
	}

	values := make([]string, len(rs.rows))
	for r, row := range rs.rows {
		values[r] = row[i]
	}
	return values
}

// Validate checks the shape invariants.
func (rs *RecordSet) Validate() error {
	if len(rs.index) != len(rs.columns) {
		return fmt.Errorf("column index out of sync: %d names, %d indexed", len(rs.columns), len(rs.index))
	}
	for name, i := range rs.index {
		if i < 0 || i >= len(rs.columns) || rs.columns[i] != name {
			return fmt.Errorf("column index out of sync for %q", name)
		}
	}
	for r, row := range rs.rows {
		if len(row) != len(rs.columns) {
			return fmt.Errorf("row %d has %d cells, expected %d", r+1, len(row), len(rs.columns))
		}
	}
	return nil
}

// =============================================================================
// COLUMN OPERATIONS
// =============================================================================

// Fill sets every row's value for an existing column.
func (rs *RecordSet) Fill(column, value string) {
	i, ok := rs.index[column]
	if !ok {
		return
	}
	for _, row := range rs.rows {
		row[i] = value
	}
}

// Append adds a new last column initialised to fill.
func (rs *RecordSet) Append(name, fill string) error {
	return rs.insertAt(len(rs.columns), name, fill)
}

// InsertAfter adds a new column immediately after anchor.
func (rs *RecordSet) InsertAfter(anchor, name, fill string) error {
	i, ok := rs.index[anchor]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, anchor)
	}
	return rs.insertAt(i+1, name, fill)
}

// MoveBefore relocates column name to sit immediately before anchor.
// Cell values travel with the column.
func (rs *RecordSet) MoveBefore(name, anchor string) error {
	if _, ok := rs.index[name]; !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if _, ok := rs.index[anchor]; !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, anchor)
	}
	if name == anchor {
		return nil
	}

	order := make([]string, 0, len(rs.columns))
	for _, col := range rs.columns {
		if col == name {
			continue
		}
		if col == anchor {
			order = append(order, name)
		}
		order = append(order, col)
	}

	positions := make([]int, len(order))
	for i, col := range order {
		positions[i] = rs.index[col]
	}

	for r, row := range rs.rows {
		moved := make([]string, len(row))
		for i, src := range positions {
			moved[i] = row[src]
		}
		rs.rows[r] = moved
	}

	rs.columns = order
	rs.reindex()

	return nil
}

// Drop removes the named columns that exist and returns the ones removed,
// in the order given.
func (rs *RecordSet) Drop(names ...string) []string {
	remove := make(map[string]bool, len(names))
	var dropped []string
	for _, name := range names {
		if rs.Has(name) && !remove[name] {
			remove[name] = true
			dropped = append(dropped, name)
		}
	}
	if len(dropped) == 0 {
		return nil
	}

	keep := make([]int, 0, len(rs.columns)-len(dropped))
	columns := make([]string, 0, len(rs.columns)-len(dropped))
	for i, col := range rs.columns {
		if !remove[col] {
			keep = append(keep, i)
			columns = append(columns, col)
		}
	}

	for r, row := range rs.rows {
		kept := make([]string, len(keep))
		for i, src := range keep {
			kept[i] = row[src]
		}
		rs.rows[r] = kept
	}

	rs.columns = columns
	rs.reindex()

	return dropped
}

// MapCells replaces every cell with fn(cell).
func (rs *RecordSet) MapCells(fn func(string) string) {
	for _, row := range rs.rows {
		for i := range row {
			row[i] = fn(row[i])
		}
	}
}

func (rs *RecordSet) insertAt(pos int, name, fill string) error {
	if rs.Has(name) {
		return fmt.Errorf("%w: %q", ErrColumnExists, name)
	}

	columns := make([]string, 0, len(rs.columns)+1)
	columns = append(columns, rs.columns[:pos]...)
	columns = append(columns, name)
	columns = append(columns, rs.columns[pos:]...)

	for r, row := range rs.rows {
		grown := make([]string, 0, len(row)+1)
		grown = append(grown, row[:pos]...)
		grown = append(grown, fill)
		grown = append(grown, row[pos:]...)
		rs.rows[r] = grown
	}

	rs.columns = columns
	rs.reindex()

	return nil
}

func (rs *RecordSet) reindex() {
	rs.index = make(map[string]int, len(rs.columns))
	for i, name := range rs.columns {
		rs.index[name] = i
	}
}
