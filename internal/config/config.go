// =============================================================================
// Ack File Processor - Configuration Module
// =============================================================================
//
// This module loads the main application configuration. Values come from three
// layers, later layers winning:
//   1. Built-in defaults
//   2. The YAML config file (config.yaml)
//   3. Environment variables and bound CLI flags (via viper, prefix ACKPROC_)
//
// The configuration is resolved once per run and passed explicitly into the
// pipeline; nothing in the core reads process-wide state.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for ack CSV files to process.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives corrected CSVs and run logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every output file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// =========================================================================
	// LOOKUP TABLES
	// =========================================================================

	// MappingFile is the error mapping table (.csv or .xlsx).
	// Empty disables error mapping.
	MappingFile string `yaml:"mapping_file"`

	// ClientListFile is the client directory (.csv or .xlsx) with
	// Account and Email columns. Empty disables recipient lookup.
	ClientListFile string `yaml:"client_list_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler: "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// CSVSettings controls how ack files are read.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Output controls the reporting period used in output file names.
	Output OutputSettings `yaml:"output"`

	// SourceFilename is written (with ".csv") to every row's
	// Source_Filename column. Empty blanks the column.
	SourceFilename string `yaml:"source_filename"`

	// RemovePII selects customer PII scrubbing: "auto", "yes" or "no".
	// Default: "auto"
	RemovePII PIIMode `yaml:"remove_pii"`

	// PIIExemptAgents are agent numbers whose presence turns "auto"
	// PII removal off for the whole batch.
	PIIExemptAgents []string `yaml:"pii_exempt_agents"`

	// MaxConcurrency is the maximum number of files transformed at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ArchiveOnSuccess moves processed inputs to the archive directories.
	// Default: true
	ArchiveOnSuccess *bool `yaml:"archive_on_success"`

	// ArchiveDateSubdirs files archived copies under YYYY/MM/DD folders.
	// Default: false
	ArchiveDateSubdirs bool `yaml:"archive_date_subdirs"`

	// =========================================================================
	// NOTIFICATION SETTINGS
	// =========================================================================

	// Notification configures the client notification email.
	Notification NotificationConfig `yaml:"notification"`

	// ActivityLog configures where notification attempts are recorded.
	ActivityLog ActivityLogConfig `yaml:"activity_log"`
}

// =============================================================================
// NESTED STRUCTURES
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the CSV file.
	// Supported: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// TrimValues strips leading and trailing whitespace from every cell.
	// Default: false
	TrimValues bool `yaml:"trim_values"`
}

// OutputSettings holds the reporting period used in output names.
type OutputSettings struct {
	// Year is the four-digit reporting year. Default: current year.
	Year string `yaml:"year"`

	// Month is the two-digit reporting month. Default: current month.
	Month string `yaml:"month"`
}

// NotificationConfig holds notification email settings.
type NotificationConfig struct {
	// Enabled sends a notification after a successful batch.
	Enabled bool `yaml:"enabled"`

	// DryRun composes and logs the message without sending it.
	DryRun bool `yaml:"dry_run"`

	// From is the sender address.
	From string `yaml:"from"`

	// CC recipients copied on every notification.
	CC []string `yaml:"cc"`

	// Subject overrides the generated subject line.
	Subject string `yaml:"subject"`

	// Body overrides the built-in message body.
	Body string `yaml:"body"`

	// SMTP holds mail server settings.
	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ActivityLogConfig selects the activity log sink.
type ActivityLogConfig struct {
	// Backend is "csv" or "sqlite". Default: "csv"
	Backend string `yaml:"backend"`

	// Path is the log file or database path.
	// Default: "./email_log.csv" (csv) or "./activity.db" (sqlite)
	Path string `yaml:"path"`
}

// =============================================================================
// PII MODE
// =============================================================================

// PIIMode selects whether customer PII columns are cleared.
type PIIMode string

const (
	PIIAuto PIIMode = "auto"
	PIIYes  PIIMode = "yes"
	PIINo   PIIMode = "no"
)

// DefaultPIIExemptAgents lists agents whose files keep customer PII by default.
var DefaultPIIExemptAgents = []string{"GUARD", "PULS", "JCTV", "PWSC"}

// Resolve returns whether PII should be removed for a batch containing the
// given agent numbers.
func (m PIIMode) Resolve(agents []string, exempt []string) bool {
	switch m {
	case PIIYes:
		return true
	case PIINo:
		return false
	}

	exemptSet := make(map[string]bool, len(exempt))
	for _, a := range exempt {
		exemptSet[strings.ToUpper(strings.TrimSpace(a))] = true
	}
	for _, a := range agents {
		if exemptSet[strings.ToUpper(strings.TrimSpace(a))] {
			return false
		}
	}
	return true
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error; defaults are used instead. Directories are
// created as part of validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	ApplyDefaults(&config, time.Now())

	return &config, nil
}

// ApplyDefaults sets default values for any unset configuration options.
func ApplyDefaults(config *MainConfig, now time.Time) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.Output.Year == "" {
		config.Output.Year = now.Format("2006")
	}
	if config.Output.Month == "" {
		config.Output.Month = now.Format("01")
	}
	if config.RemovePII == "" {
		config.RemovePII = PIIAuto
	}
	if config.PIIExemptAgents == nil {
		config.PIIExemptAgents = append([]string(nil), DefaultPIIExemptAgents...)
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.ArchiveOnSuccess == nil {
		archive := true
		config.ArchiveOnSuccess = &archive
	}
	if config.Notification.SMTP.Port == 0 {
		config.Notification.SMTP.Port = 25
	}
	if config.ActivityLog.Backend == "" {
		config.ActivityLog.Backend = "csv"
	}
	if config.ActivityLog.Path == "" {
		if config.ActivityLog.Backend == "sqlite" {
			config.ActivityLog.Path = "./activity.db"
		} else {
			config.ActivityLog.Path = "./email_log.csv"
		}
	}
}

// ApplyOverrides copies any values set in v (environment or bound flags) over
// the file configuration. Keys use the YAML names, e.g. "output.month".
func ApplyOverrides(config *MainConfig, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	setString("input_dir", &config.InputDir)
	setString("output_dir", &config.OutputDir)
	setString("input_archive_dir", &config.InputArchiveDir)
	setString("output_archive_dir", &config.OutputArchiveDir)
	setString("mapping_file", &config.MappingFile)
	setString("client_list_file", &config.ClientListFile)
	setString("log_level", &config.LogLevel)
	setString("log_format", &config.LogFormat)
	setString("source_filename", &config.SourceFilename)
	setString("output.year", &config.Output.Year)
	setString("output.month", &config.Output.Month)
	setString("csv_settings.delimiter", &config.CSVSettings.Delimiter)
	setString("csv_settings.encoding", &config.CSVSettings.Encoding)
	setString("notification.from", &config.Notification.From)
	setString("notification.smtp.host", &config.Notification.SMTP.Host)
	setString("notification.smtp.username", &config.Notification.SMTP.Username)
	setString("notification.smtp.password", &config.Notification.SMTP.Password)
	setString("activity_log.backend", &config.ActivityLog.Backend)
	setString("activity_log.path", &config.ActivityLog.Path)

	if v.IsSet("remove_pii") {
		config.RemovePII = PIIMode(strings.ToLower(v.GetString("remove_pii")))
	}
	if v.IsSet("max_concurrency") {
		config.MaxConcurrency = v.GetInt("max_concurrency")
	}
	if v.IsSet("archive_date_subdirs") {
		config.ArchiveDateSubdirs = v.GetBool("archive_date_subdirs")
	}
	if v.IsSet("notification.enabled") {
		config.Notification.Enabled = v.GetBool("notification.enabled")
	}
	if v.IsSet("notification.dry_run") {
		config.Notification.DryRun = v.GetBool("notification.dry_run")
	}
	if v.IsSet("notification.smtp.port") {
		config.Notification.SMTP.Port = v.GetInt("notification.smtp.port")
	}
}

// Validate checks option values and creates the working directories.
func Validate(config *MainConfig) error {
	switch config.RemovePII {
	case PIIAuto, PIIYes, PIINo:
	default:
		return fmt.Errorf("remove_pii must be auto, yes or no (got %q)", config.RemovePII)
	}

	month, err := strconv.Atoi(config.Output.Month)
	if err != nil || month < 1 || month > 12 || len(config.Output.Month) != 2 {
		return fmt.Errorf("output.month must be two digits 01-12 (got %q)", config.Output.Month)
	}
	if _, err := strconv.Atoi(config.Output.Year); err != nil || len(config.Output.Year) != 4 {
		return fmt.Errorf("output.year must be four digits (got %q)", config.Output.Year)
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1 (got %d)", config.MaxConcurrency)
	}

	switch config.ActivityLog.Backend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("activity_log.backend must be csv or sqlite (got %q)", config.ActivityLog.Backend)
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
