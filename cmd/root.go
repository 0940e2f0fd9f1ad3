// =============================================================================
// Ack File Processor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'process', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ackproc)
//   ├── processCmd (ackproc process)
//   ├── validateCmd (ackproc validate)
//   └── versionCmd (ackproc version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (e.g., --config, --verbose)
//   2. Loading the YAML configuration and applying ACKPROC_* environment
//      variables and flag overrides through Viper
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables verbose logging when set to true.
var verbose bool

// settings layers environment variables and flags over the config file.
var settings = newSettings()

// appConfig is the resolved configuration, loaded before any subcommand runs.
var appConfig *config.MainConfig

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ACKPROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "ackproc",

	Short: "Ack File Processor - Correct client acknowledgement files and notify clients",

	Long: `Ack File Processor rewrites client acknowledgement (ack) CSV files produced
by the warranty processing pipeline into the layout clients receive.

Key Features:
  - Drops internal pipeline columns and fills Source_Filename
  - Maps internal error types to client error types and actions
  - Clears property address on COSIGN rows and customer PII on request
  - Concurrent processing with per-file error isolation
  - Client notification email and activity log

Example Usage:
  ackproc process                      # Process all files in the input directory
  ackproc process --config ./my.yaml   # Use a custom configuration file
  ackproc process --dry-run            # Show what would be written
  ackproc validate                     # Validate configuration and lookup tables`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "config.yaml", "Path to the main configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console, json")

	_ = settings.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = settings.BindPFlag("log_format", flags.Lookup("log-format"))
}

// initConfig loads the configuration file, applies overrides and sets up
// logging. A missing configuration file is not an error.
func initConfig() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return err
	}

	config.ApplyOverrides(cfg, settings)
	if verbose {
		cfg.LogLevel = "debug"
	}

	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	appConfig = cfg
	slog.Debug("Configuration loaded", "path", cfgFile)

	return nil
}

// setupLogging installs the default slog logger.
func setupLogging(level, format string) error {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "", "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
