package activitylog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
)

// CSVSink appends entries to a CSV file. If the existing file has a
// different set of columns it is replaced by a fresh log.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink writing to path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Log appends entries, rewriting the file in the canonical column order.
func (s *CSVSink) Log(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rs, err := s.load()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := rs.AddRow(e.row()); err != nil {
			return fmt.Errorf("failed to add log entry: %w", err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	if err := csvparser.Write(file, rs); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write activity log: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace activity log: %w", err)
	}

	slog.Info("Email activity logged", "path", s.path, "entries", len(entries))
	return nil
}

// Close is a no-op; the file is rewritten on every Log call.
func (s *CSVSink) Close() error {
	return nil
}

// load returns the existing log reordered to Columns, or an empty log.
func (s *CSVSink) load() (*recordset.RecordSet, error) {
	fresh, err := recordset.New(Columns)
	if err != nil {
		return nil, err
	}

	existing, err := csvparser.Parse(s.path, config.CSVSettings{})
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, validation.ErrEmptyFile):
		return fresh, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	if !sameColumns(existing.Columns(), Columns) {
		slog.Warn("Activity log structure changed, starting a fresh log", "path", s.path)
		return fresh, nil
	}

	for i := 0; i < existing.Len(); i++ {
		row := make([]string, len(Columns))
		for c, col := range Columns {
			row[c] = existing.Get(i, col)
		}
		if err := fresh.AddRow(row); err != nil {
			return nil, err
		}
	}

	return fresh, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string{}, a...)
	y := append([]string{}, b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
