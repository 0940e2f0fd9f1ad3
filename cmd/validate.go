// =============================================================================
// Ack File Processor - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It checks the configuration, the
// mapping table and the client list, and pre-checks every ack file in the
// input directory without transforming or moving anything.
//
// COMMAND USAGE:
//   ackproc validate
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ack-file-processor/internal/cli"
	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/directory"
	"github.com/ginjaninja78/ack-file-processor/internal/mapping"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
	"github.com/ginjaninja78/ack-file-processor/pkg/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, lookup tables and input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		problems := runValidate(appConfig, cmd.OutOrStdout())
		if problems > 0 {
			return fmt.Errorf("validation found %d problem(s)", problems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate prints a report and returns the number of problems found.
func runValidate(cfg *config.MainConfig, w io.Writer) int {
	problems := 0

	fmt.Fprintln(w, cli.TitleStyle.Render("Configuration"))

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(w, cli.Error(err.Error()))
		return 1
	}
	fmt.Fprintln(w, cli.KeyValue(
		"Input directory", cfg.InputDir,
		"Output directory", cfg.OutputDir,
		"Reporting period", cfg.Output.Year+"-"+cfg.Output.Month,
		"Remove PII", string(cfg.RemovePII),
		"Max concurrency", cfg.MaxConcurrency,
	))

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.TitleStyle.Render("Mapping table"))

	if cfg.MappingFile == "" {
		fmt.Fprintln(w, cli.SubtleStyle.Render("Not configured; error mapping is skipped."))
	} else if _, stats, err := mapping.LoadFile(cfg.MappingFile, cfg.CSVSettings); err != nil {
		problems++
		fmt.Fprintln(w, cli.Error(err.Error()))
	} else {
		fileTypes := "(no file_type_2 column)"
		if stats.HasFileType2 {
			fileTypes = strings.Join(stats.FileTypes, ", ")
		}
		fmt.Fprintln(w, cli.KeyValue(
			"Rules", stats.Rules,
			"Error types", stats.SimpleKeys,
			"Composite keys", stats.CompositeKeys,
			"File types", fileTypes,
			"Dropped blank rows", stats.DroppedBlank,
			"Dropped duplicates", stats.DroppedDupes,
		))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.TitleStyle.Render("Client list"))

	if cfg.ClientListFile == "" {
		fmt.Fprintln(w, cli.SubtleStyle.Render("Not configured; notifications cannot be addressed."))
	} else if dir, err := directory.LoadFile(cfg.ClientListFile, cfg.CSVSettings); err != nil {
		problems++
		fmt.Fprintln(w, cli.Error(err.Error()))
	} else {
		fmt.Fprintln(w, cli.KeyValue("Accounts", dir.Len()))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.TitleStyle.Render("Input files"))

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	inputs, err := files.DiscoverInputFiles("*.csv")
	if err != nil {
		fmt.Fprintln(w, cli.Error(err.Error()))
		return problems + 1
	}
	if len(inputs) == 0 {
		fmt.Fprintln(w, cli.SubtleStyle.Render("No CSV files found in the input directory."))
	}

	var fileErrors []error
	for _, path := range inputs {
		name := filepath.Base(path)

		rs, err := csvparser.Parse(path, cfg.CSVSettings)
		if err == nil {
			err = validation.CheckRecordSet(name, rs)
		}
		if err != nil {
			fileErrors = append(fileErrors, err)
			continue
		}

		fmt.Fprintln(w, cli.Success(fmt.Sprintf("%s (%d rows, %d columns)", name, rs.Len(), rs.Width())))
	}

	if len(fileErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, cli.ErrorStyle.Render(validation.FormatErrors(fileErrors)))
		fmt.Fprintln(w)
	}

	return problems + len(fileErrors)
}
