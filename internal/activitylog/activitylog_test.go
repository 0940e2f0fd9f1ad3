package activitylog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
)

var testTime = time.Date(2025, 1, 15, 9, 30, 0, 0, time.Local)

func TestBuildEntries(t *testing.T) {
	entries := BuildEntries(
		[]string{"Acme", "Beta"}, []string{"A1"},
		[]string{"client@example.com"}, []string{"lead@example.com"},
		"Subject", true, testTime)

	require.Len(t, entries, 2)
	assert.Equal(t, "Acme", entries[0].Agent)
	assert.Equal(t, "Beta", entries[1].Agent)
	assert.Equal(t, "client@example.com; CC: lead@example.com", entries[0].Recipients)
	assert.Equal(t, StatusSent, entries[0].Status)
}

func TestBuildEntriesFallbacks(t *testing.T) {
	entries := BuildEntries(nil, []string{"A1"}, nil, nil, "S", false, testTime)
	require.Len(t, entries, 1)
	assert.Equal(t, "A1", entries[0].Agent)
	assert.Equal(t, StatusFailed, entries[0].Status)

	entries = BuildEntries([]string{" "}, nil, nil, nil, "S", false, testTime)
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].Agent)
}

func TestCSVSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_log.csv")
	sink := NewCSVSink(path)
	ctx := context.Background()

	require.NoError(t, sink.Log(ctx, BuildEntries(nil, []string{"A1"}, []string{"a@example.com"}, nil, "First", true, testTime)))
	require.NoError(t, sink.Log(ctx, BuildEntries(nil, []string{"A2"}, []string{"b@example.com"}, nil, "Second", false, testTime)))

	rs, err := csvparser.Parse(path, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, Columns, rs.Columns())
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, []string{"a@example.com", "A1", "2025-01-15 09:30:00", "First", "Sent"}, rs.Row(0))
	assert.Equal(t, "Failed", rs.Get(1, "Email_Status"))
}

func TestCSVSinkReordersMatchingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_log.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("Agent,Recipients,Date,Subject,Email_Status\nA0,x@example.com,2024-12-01 00:00:00,Old,Sent\n"), 0o644))

	require.NoError(t, NewCSVSink(path).Log(context.Background(),
		BuildEntries(nil, []string{"A1"}, nil, nil, "New", true, testTime)))

	rs, err := csvparser.Parse(path, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, Columns, rs.Columns())
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "A0", rs.Get(0, "Agent"))
	assert.Equal(t, "x@example.com", rs.Get(0, "Recipients"))
}

func TestCSVSinkStartsFreshOnSchemaChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email_log.csv")
	require.NoError(t, os.WriteFile(path, []byte("Agent,Date\nA0,2024-12-01\n"), 0o644))

	require.NoError(t, NewCSVSink(path).Log(context.Background(),
		BuildEntries(nil, []string{"A1"}, nil, nil, "New", true, testTime)))

	rs, err := csvparser.Parse(path, config.CSVSettings{})
	require.NoError(t, err)
	assert.Equal(t, Columns, rs.Columns())
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "A1", rs.Get(0, "Agent"))
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "activity.db")

	sink, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	want := BuildEntries([]string{"Acme"}, nil, []string{"a@example.com"}, nil, "Subject", true, testTime)
	require.NoError(t, sink.Log(ctx, want))
	require.NoError(t, sink.Close())

	// reopening must not re-run migrations
	sink, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer sink.Close()

	got, err := sink.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Agent)
	assert.Equal(t, StatusSent, got[0].Status)
	assert.True(t, testTime.Equal(got[0].Date))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sink, err := Open(ctx, config.ActivityLogConfig{Backend: "csv", Path: filepath.Join(dir, "log.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, sink)

	sink, err = Open(ctx, config.ActivityLogConfig{Backend: "sqlite", Path: filepath.Join(dir, "log.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSink{}, sink)
	require.NoError(t, sink.Close())

	_, err = Open(ctx, config.ActivityLogConfig{Backend: "kafka"})
	assert.Error(t, err)
}
