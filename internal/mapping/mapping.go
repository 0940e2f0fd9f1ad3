// =============================================================================
// Ack File Processor - Error Mapping Table
// =============================================================================
//
// This module loads the client error mapping table and indexes it for the
// two-tier lookup performed by the converter:
//
//   - composite key: Error_Type + "|" + file_type_2 (rules with a file type)
//   - simple key:    Error_Type
//
// Both indexes use last-one-wins semantics when keys collide. A loaded Table
// is never mutated and may be shared across goroutines.
//
// =============================================================================

package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/xlsxparser"
)

// Column names recognised in the mapping table.
const (
	ColumnErrorType       = "Error_Type"
	ColumnClientErrorType = "Client_Error_Type"
	ColumnClientAction    = "Client Action"
	ColumnFileType2       = "file_type_2"
)

// RequiredColumns lists the columns every mapping table must carry.
var RequiredColumns = []string{ColumnErrorType, ColumnClientErrorType, ColumnClientAction}

// ErrMissingColumns is matched by MissingColumnsError via errors.Is.
var ErrMissingColumns = errors.New("mapping table is missing required columns")

// MissingColumnsError names the required columns absent from a mapping table.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// =============================================================================
// RULES AND TABLE
// =============================================================================

// Rule is one row of the mapping table.
type Rule struct {
	ErrorType       string
	ClientErrorType string
	ClientAction    string
	FileType2       string
}

// CompositeKey returns the tier-1 key for the rule, or "" when the rule has
// no file type.
func (r Rule) CompositeKey() string {
	if r.FileType2 == "" {
		return ""
	}
	return CompositeKey(r.ErrorType, r.FileType2)
}

// CompositeKey joins an error type and a reason text into a tier-1 key.
func CompositeKey(errorType, reason string) string {
	return errorType + "|" + reason
}

// Table is a loaded, read-only mapping table.
type Table struct {
	rules        []Rule
	hasFileType2 bool
	composite    map[string]Rule
	simple       map[string]Rule
}

// Stats summarises a loaded table for logging and the validate command.
type Stats struct {
	Rules         int
	CompositeKeys int
	SimpleKeys    int
	FileTypes     []string
	HasFileType2  bool
	DroppedBlank  int
	DroppedDupes  int
}

// NewTable indexes rules that are already normalised.
func NewTable(rules []Rule, hasFileType2 bool) *Table {
	t := &Table{
		rules:        rules,
		hasFileType2: hasFileType2,
		composite:    make(map[string]Rule),
		simple:       make(map[string]Rule),
	}

	for _, rule := range rules {
		if key := rule.CompositeKey(); key != "" {
			t.composite[key] = rule
		}
		t.simple[rule.ErrorType] = rule
	}

	return t
}

// Len returns the number of loaded rules.
func (t *Table) Len() int {
	return len(t.rules)
}

// HasFileType2 reports whether the source table carried a file_type_2
// column. Composite matching only runs when it did.
func (t *Table) HasFileType2() bool {
	return t.hasFileType2
}

// LookupComposite finds a rule by error type and reason text.
func (t *Table) LookupComposite(errorType, reason string) (Rule, bool) {
	rule, ok := t.composite[CompositeKey(errorType, reason)]
	return rule, ok
}

// LookupSimple finds a rule by error type alone.
func (t *Table) LookupSimple(errorType string) (Rule, bool) {
	rule, ok := t.simple[errorType]
	return rule, ok
}

// =============================================================================
// LOADING
// =============================================================================

// Load validates and normalises a raw table.
//
// Rows with a blank Error_Type are discarded, values are trimmed and exact
// duplicate rows are removed. If any required column is missing a
// *MissingColumnsError is returned and no table is produced.
func Load(headers []string, rows [][]string) (*Table, Stats, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, Stats{}, &MissingColumnsError{Columns: missing}
	}

	fileTypeIdx, hasFileType2 := index[ColumnFileType2]

	cell := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var stats Stats
	seen := make(map[string]bool, len(rows))
	rules := make([]Rule, 0, len(rows))

	for _, row := range rows {
		errorType := strings.TrimSpace(cell(row, index[ColumnErrorType]))
		if errorType == "" {
			stats.DroppedBlank++
			continue
		}

		// Duplicates are judged on the whole raw row, as exported.
		fingerprint := strings.Join(row, "\x1f")
		if seen[fingerprint] {
			stats.DroppedDupes++
			continue
		}
		seen[fingerprint] = true

		rule := Rule{
			ErrorType:       errorType,
			ClientErrorType: strings.TrimSpace(cell(row, index[ColumnClientErrorType])),
			ClientAction:    strings.TrimSpace(cell(row, index[ColumnClientAction])),
		}
		if hasFileType2 {
			rule.FileType2 = strings.TrimSpace(cell(row, fileTypeIdx))
		}

		rules = append(rules, rule)
	}

	table := NewTable(rules, hasFileType2)

	stats.Rules = len(table.rules)
	stats.CompositeKeys = len(table.composite)
	stats.SimpleKeys = len(table.simple)
	stats.HasFileType2 = hasFileType2

	seenType := make(map[string]bool)
	for _, rule := range rules {
		if rule.FileType2 != "" && !seenType[rule.FileType2] {
			seenType[rule.FileType2] = true
			stats.FileTypes = append(stats.FileTypes, rule.FileType2)
		}
	}

	slog.Info("Mapping table loaded",
		"rules", stats.Rules,
		"composite_keys", stats.CompositeKeys,
		"simple_keys", stats.SimpleKeys,
		"dropped_blank", stats.DroppedBlank,
		"dropped_duplicates", stats.DroppedDupes)

	return table, stats, nil
}

// LoadFile reads a mapping table from a .csv or .xlsx file.
func LoadFile(path string, settings config.CSVSettings) (*Table, Stats, error) {
	var (
		table *csvparser.Table
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = xlsxparser.ReadTable(path, "")
	default:
		table, err = csvparser.ReadTableFile(path, settings)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read mapping table %s: %w", filepath.Base(path), err)
	}

	return Load(table.Headers, table.Rows)
}
