package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, PIIAuto, cfg.RemovePII)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.True(t, *cfg.ArchiveOnSuccess)
	assert.Equal(t, "csv", cfg.ActivityLog.Backend)
	assert.Equal(t, "./email_log.csv", cfg.ActivityLog.Path)
	assert.Len(t, cfg.Output.Month, 2)
}

func TestLoadMainConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
input_dir: /data/in
mapping_file: errors.xlsx
source_filename: BATCH1
remove_pii: "no"
archive_on_success: false
archive_date_subdirs: true
output:
  year: "2025"
  month: "01"
notification:
  cc: [ops@example.com]
activity_log:
  backend: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", cfg.InputDir)
	assert.Equal(t, "errors.xlsx", cfg.MappingFile)
	assert.Equal(t, "BATCH1", cfg.SourceFilename)
	assert.Equal(t, PIINo, cfg.RemovePII)
	assert.False(t, *cfg.ArchiveOnSuccess)
	assert.True(t, cfg.ArchiveDateSubdirs)
	assert.Equal(t, "2025", cfg.Output.Year)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notification.CC)
	assert.Equal(t, "./activity.db", cfg.ActivityLog.Path)
}

func TestLoadMainConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input_dir: [unterminated"), 0o644))

	_, err := LoadMainConfig(path)
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := &MainConfig{}
	ApplyDefaults(cfg, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	v := viper.New()
	v.Set("output.month", "07")
	v.Set("remove_pii", "YES")
	v.Set("max_concurrency", 1)
	v.Set("notification.enabled", true)
	v.Set("archive_date_subdirs", true)

	ApplyOverrides(cfg, v)

	assert.Equal(t, "2026", cfg.Output.Year)
	assert.Equal(t, "07", cfg.Output.Month)
	assert.Equal(t, PIIYes, cfg.RemovePII)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.True(t, cfg.Notification.Enabled)
	assert.True(t, cfg.ArchiveDateSubdirs)
}

func TestValidate(t *testing.T) {
	base := func() *MainConfig {
		dir := t.TempDir()
		cfg := &MainConfig{
			InputDir:         filepath.Join(dir, "in"),
			OutputDir:        filepath.Join(dir, "out"),
			InputArchiveDir:  filepath.Join(dir, "in_arch"),
			OutputArchiveDir: filepath.Join(dir, "out_arch"),
		}
		ApplyDefaults(cfg, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
		return cfg
	}

	cfg := base()
	require.NoError(t, Validate(cfg))
	assert.DirExists(t, cfg.OutputDir)

	cfg = base()
	cfg.RemovePII = "maybe"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Output.Month = "13"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Output.Year = "25"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.ActivityLog.Backend = "postgres"
	assert.Error(t, Validate(cfg))
}

func TestPIIModeResolve(t *testing.T) {
	exempt := DefaultPIIExemptAgents

	assert.True(t, PIIYes.Resolve([]string{"GUARD"}, exempt))
	assert.False(t, PIINo.Resolve([]string{"OTHER"}, exempt))
	assert.True(t, PIIAuto.Resolve([]string{"OTHER", "COSIGN"}, exempt))
	assert.False(t, PIIAuto.Resolve([]string{"OTHER", " guard "}, exempt))
	assert.True(t, PIIAuto.Resolve(nil, exempt))
}
