// =============================================================================
// Ack File Processor - Activity Log
// =============================================================================
//
// This module records every notification attempt, one entry per agent.
// Entries go to a CSV file (the default) or a SQLite database.
//
// CSV COLUMNS:
//   Recipients, Agent, Date, Subject, Email_Status
//
// =============================================================================

package activitylog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
)

// DateLayout is the timestamp format written to the Date column.
const DateLayout = "2006-01-02 15:04:05"

// Columns is the fixed column order of the CSV log.
var Columns = []string{"Recipients", "Agent", "Date", "Subject", "Email_Status"}

// Status values.
const (
	StatusSent   = "Sent"
	StatusFailed = "Failed"
)

// Entry is one row of the activity log.
type Entry struct {
	Recipients string
	Agent      string
	Date       time.Time
	Subject    string
	Status     string
}

// Sink appends entries to a persistent log.
type Sink interface {
	Log(ctx context.Context, entries []Entry) error
	Close() error
}

// BuildEntries returns one entry per agent for a notification attempt.
//
// Agent names are used when present, otherwise agent numbers, otherwise a
// single "Unknown" entry. CC addresses are listed after the To addresses
// with a "CC: " prefix.
func BuildEntries(names, numbers, to, cc []string, subject string, sent bool, now time.Time) []Entry {
	agents := nonBlank(names)
	if len(agents) == 0 {
		agents = nonBlank(numbers)
	}
	if len(agents) == 0 {
		agents = []string{"Unknown"}
	}

	recipients := append([]string{}, to...)
	for _, addr := range cc {
		recipients = append(recipients, "CC: "+addr)
	}

	status := StatusFailed
	if sent {
		status = StatusSent
	}

	entries := make([]Entry, 0, len(agents))
	for _, agent := range agents {
		entries = append(entries, Entry{
			Recipients: strings.Join(recipients, "; "),
			Agent:      agent,
			Date:       now,
			Subject:    subject,
			Status:     status,
		})
	}

	return entries
}

// Open returns the sink selected by cfg.
func Open(ctx context.Context, cfg config.ActivityLogConfig) (Sink, error) {
	switch cfg.Backend {
	case "", "csv":
		return NewCSVSink(cfg.Path), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown activity log backend %q", cfg.Backend)
	}
}

func (e Entry) row() []string {
	return []string{e.Recipients, e.Agent, e.Date.Format(DateLayout), e.Subject, e.Status}
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
