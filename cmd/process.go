// =============================================================================
// Ack File Processor - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// correcting ack files. It orchestrates the entire batch.
//
// COMMAND USAGE:
//   ackproc process [flags]
//
// FLAGS:
//   --dry-run          : Run the pipeline without writing or archiving anything
//   --file             : Process only the given file(s) instead of the input directory
//   --year, --month    : Reporting period used in output names and the email subject
//   --source-filename  : Value written to Source_Filename (".csv" is appended)
//   --remove-pii       : auto, yes or no
//   --notify           : Send the client notification after processing
//
// PROCESSING PIPELINE:
//   1. Validate configuration
//   2. Load the error mapping table (failures disable mapping, not the run)
//   3. Discover ack files in the input directory
//   4. Resolve the PII policy for the batch
//   5. For each file (concurrently, bounded by max_concurrency):
//      a. Parse the CSV file
//      b. Transform and map errors
//      c. Write the output file
//      d. Archive the processed files
//   6. Write the summary and error logs
//   7. Notify the client and record the activity
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/ack-file-processor/internal/activitylog"
	"github.com/ginjaninja78/ack-file-processor/internal/cli"
	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/converter"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/directory"
	"github.com/ginjaninja78/ack-file-processor/internal/mapping"
	"github.com/ginjaninja78/ack-file-processor/internal/notify"
	"github.com/ginjaninja78/ack-file-processor/internal/validation"
	"github.com/ginjaninja78/ack-file-processor/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun runs the pipeline without writing output files.
var dryRun bool

// filePaths restricts processing to specific files.
var filePaths []string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process ack files and write corrected copies",
	Long: `The process command scans the input directory for ack CSV files and writes
a corrected copy of each to the output directory.

Processing is done concurrently. Each file is processed independently, and
errors in one file do not affect the processing of others.

On successful processing:
  - The corrected file is placed in the output directory
  - The original CSV is moved to the input archive
  - A summary report is generated

On error:
  - An error log is created in the output directory
  - The original CSV remains in the input directory
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(appConfig); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		_, err := runBatch(cmd.Context(), appConfig, batchOptions{
			DryRun: dryRun,
			Files:  filePaths,
			Out:    cmd.OutOrStdout(),
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	flags := processCmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing or archiving files")
	flags.StringSliceVar(&filePaths, "file", nil, "Process only these files (repeatable)")
	flags.String("year", "", "Reporting year (YYYY)")
	flags.String("month", "", "Reporting month (MM)")
	flags.String("source-filename", "", "Value for the Source_Filename column, without extension")
	flags.String("remove-pii", "", "Clear customer PII: auto, yes or no")
	flags.Bool("notify", false, "Send the client notification email after processing")

	_ = settings.BindPFlag("output.year", flags.Lookup("year"))
	_ = settings.BindPFlag("output.month", flags.Lookup("month"))
	_ = settings.BindPFlag("source_filename", flags.Lookup("source-filename"))
	_ = settings.BindPFlag("remove_pii", flags.Lookup("remove-pii"))
	_ = settings.BindPFlag("notification.enabled", flags.Lookup("notify"))
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// batchOptions controls a single run of runBatch.
type batchOptions struct {
	DryRun bool
	Files  []string
	Out    io.Writer

	// Sender overrides the configured notification sender.
	Sender notify.Sender
}

// batchReport is what a run produced.
type batchReport struct {
	RunID       string
	Results     []converter.Result
	RemovePII   bool
	MappingErr  error
	Summary     utils.ProcessingSummary
	SummaryLog  string
	ErrorLog    string
	Notified    bool
	NotifyError error
}

// runBatch is the main function that orchestrates the processing pipeline.
// File-level failures are reported, not returned; only configuration or
// discovery problems abort the run.
func runBatch(ctx context.Context, cfg *config.MainConfig, opts batchOptions) (*batchReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	report := &batchReport{RunID: utils.NewRunID()}
	startTime := time.Now()
	logger := slog.Default().With("run_id", report.RunID)

	fmt.Fprintln(opts.Out, cli.TitleStyle.Render("Ack File Processor"))

	// =========================================================================
	// STEP 1: LOAD MAPPING TABLE
	// =========================================================================

	var table *mapping.Table
	if cfg.MappingFile != "" {
		t, _, err := mapping.LoadFile(cfg.MappingFile, cfg.CSVSettings)
		if err != nil {
			report.MappingErr = err
			logger.Warn("Error mapping disabled for this run", "error", err)
			fmt.Fprintln(opts.Out, cli.Warning("Mapping table not loaded, continuing without error mapping: "+err.Error()))
		} else {
			table = t
		}
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	archive := true
	if cfg.ArchiveOnSuccess != nil {
		archive = *cfg.ArchiveOnSuccess
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.ArchiveOnSuccess = archive
	files.UseTimestampSubdirs = cfg.ArchiveDateSubdirs

	inputFiles := opts.Files
	if len(inputFiles) == 0 {
		discovered, err := files.DiscoverInputFiles("*.csv")
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		inputFiles = discovered
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(opts.Out, cli.SubtleStyle.Render("No CSV files found in the input directory."))
		return report, nil
	}

	logger.Info("Discovered input files", "count", len(inputFiles))

	// =========================================================================
	// STEP 3: RESOLVE PII POLICY
	// =========================================================================

	report.RemovePII = cfg.RemovePII.Resolve(batchAgents(inputFiles, cfg.CSVSettings), cfg.PIIExemptAgents)
	logger.Info("PII policy resolved", "mode", string(cfg.RemovePII), "remove_pii", report.RemovePII)

	transformOpts := converter.Options{
		SourceFilename: cfg.SourceFilename,
		RemovePII:      report.RemovePII,
		Mapping:        table,
	}

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := make([]converter.Result, len(inputFiles))
	bar := newProgressBar(opts.Out, len(inputFiles))

	var barMu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, file := range inputFiles {
		g.Go(func() error {
			results[i] = converter.New(file, cfg, transformOpts, files).
				WithDryRun(opts.DryRun).
				Run()

			barMu.Lock()
			if err := bar.Add(1); err != nil {
				slog.Debug("Failed to update progress bar", "error", err)
			}
			barMu.Unlock()

			// Per-file failures live in the result.
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results

	// =========================================================================
	// STEP 5: SUMMARY AND LOGS
	// =========================================================================

	report.Summary = summarize(report.RunID, startTime, results)
	printSummary(opts.Out, report, opts.DryRun)

	if !opts.DryRun {
		writeLogs(logger, cfg, report)
	}

	// =========================================================================
	// STEP 6: NOTIFICATION
	// =========================================================================

	if cfg.Notification.Enabled {
		notifyClients(ctx, logger, cfg, opts, report)
	}

	return report, nil
}

// batchAgents collects Agent_Number values across the batch for the PII
// policy. Unreadable files are skipped here and reported by the pipeline.
func batchAgents(paths []string, settings config.CSVSettings) []string {
	var agents []string
	for _, path := range paths {
		rs, err := csvparser.Parse(path, settings)
		if err != nil {
			continue
		}
		agents = append(agents, csvparser.GetUniqueValues(rs, converter.ColumnAgentNumber)...)
	}
	return agents
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing ack files...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// summarize folds per-file results into a processing summary.
func summarize(runID string, start time.Time, results []converter.Result) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		RunID:      runID,
		StartTime:  start,
		EndTime:    time.Now(),
		TotalFiles: len(results),
	}

	seen := make(map[string]bool)

	for _, r := range results {
		if !r.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.FilePath,
				ErrorMessage: r.Error.Error(),
				ErrorType:    errorType(r.Error),
			})
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalRows += r.Stats.RowsProcessed
		summary.ErrorRows += r.Summary.ErrorRows

		info := utils.ProcessedFileInfo{
			InputFile:   r.FilePath,
			OutputFile:  r.OutputFile,
			Rows:        r.Stats.RowsProcessed,
			ErrorRows:   r.Summary.ErrorRows,
			ProcessTime: r.Stats.ProcessingTime,
		}

		if r.Coverage != nil {
			info.MappedRows = r.Coverage.MappedCount()
			summary.MappedRows += info.MappedRows
			for _, et := range r.Coverage.Unmatched {
				if !seen[et] {
					seen[et] = true
					summary.UnmatchedTypes = append(summary.UnmatchedTypes, et)
				}
			}
		}

		summary.ProcessedFiles = append(summary.ProcessedFiles, info)
	}

	return summary
}

// errorType names the failure kind for the logs.
func errorType(err error) string {
	if kind := validation.KindOf(err); kind != "" {
		return string(kind)
	}
	return "ProcessingError"
}

func printSummary(w io.Writer, report *batchReport, dryRun bool) {
	for _, r := range report.Results {
		name := filepath.Base(r.FilePath)
		switch {
		case !r.Success:
			fmt.Fprintln(w, cli.Error(fmt.Sprintf("%s: %v", name, r.Error)))
		case r.MappingError != nil:
			fmt.Fprintln(w, cli.Warning(fmt.Sprintf("%s -> %s (unmapped: %v)", name, filepath.Base(r.OutputFile), r.MappingError)))
		default:
			fmt.Fprintln(w, cli.Success(fmt.Sprintf("%s -> %s", name, filepath.Base(r.OutputFile))))
		}
	}

	s := report.Summary
	pii := "kept"
	if report.RemovePII {
		pii = "removed"
	}

	body := cli.KeyValue(
		"Total files", s.TotalFiles,
		"Successful", s.SuccessfulFiles,
		"Failed", s.FailedFiles,
		"Rows", s.TotalRows,
		"Error rows mapped", fmt.Sprintf("%d / %d", s.MappedRows, s.ErrorRows),
		"Customer PII", pii,
		"Time elapsed", s.EndTime.Sub(s.StartTime).Round(time.Millisecond),
	)

	if len(s.UnmatchedTypes) > 0 {
		display := converter.CoverageReport{Unmatched: s.UnmatchedTypes}.Display()
		body += "\n" + cli.KeyValue("Unmatched error types", display)
	}
	if dryRun {
		body += "\n\n" + cli.SubtleStyle.Render("Dry run: no files were written or archived.")
	}

	fmt.Fprintln(w, cli.BoxStyle.Render(body))
}

func writeLogs(logger *slog.Logger, cfg *config.MainConfig, report *batchReport) {
	path, err := utils.WriteSummaryLog(report.Summary, cfg.OutputDir)
	if err != nil {
		logger.Warn("Failed to write summary log", "error", err)
	}
	report.SummaryLog = path

	var entries []utils.ErrorLogEntry
	now := time.Now()
	if report.MappingErr != nil {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     filepath.Base(cfg.MappingFile),
			ErrorType:    "MappingLoadError",
			ErrorMessage: report.MappingErr.Error(),
		})
	}
	for _, r := range report.Results {
		if r.Success {
			continue
		}
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     filepath.Base(r.FilePath),
			ErrorType:    errorType(r.Error),
			ErrorMessage: r.Error.Error(),
		})
	}

	path, err = utils.WriteErrorLog(entries, cfg.OutputDir)
	if err != nil {
		logger.Warn("Failed to write error log", "error", err)
	}
	report.ErrorLog = path
}

// =============================================================================
// NOTIFICATION
// =============================================================================

func notifyClients(ctx context.Context, logger *slog.Logger, cfg *config.MainConfig, opts batchOptions, report *batchReport) {
	var names, numbers []string
	for _, r := range report.Results {
		if r.Success {
			names = append(names, r.Summary.AgentNames...)
			numbers = append(numbers, r.Summary.Agents...)
		}
	}
	if len(numbers) == 0 && len(names) == 0 {
		logger.Info("No processed files, notification skipped")
		return
	}

	if cfg.ClientListFile == "" {
		logger.Warn("Notification enabled but no client list configured")
		return
	}

	dir, err := directory.LoadFile(cfg.ClientListFile, cfg.CSVSettings)
	if err != nil {
		report.NotifyError = err
		logger.Warn("Client list not loaded, notification skipped", "error", err)
		fmt.Fprintln(opts.Out, cli.Warning("Notification skipped: "+err.Error()))
		return
	}

	recipients := dir.Recipients(numbers)
	if len(recipients) == 0 {
		logger.Warn("No client recipients found for batch agents", "agents", strings.Join(numbers, ", "))
		fmt.Fprintln(opts.Out, cli.Warning("Notification skipped: no recipients for these agents"))
		return
	}

	msg := notify.Compose(cfg.Notification, recipients, unique(names), unique(numbers), cfg.Output.Year, cfg.Output.Month)

	// Nothing leaves the machine in a dry run, so nothing is recorded either.
	dry := cfg.Notification.DryRun || opts.DryRun

	sender := opts.Sender
	if sender == nil {
		if dry {
			sender = &notify.DryRunSender{Logger: logger}
		} else {
			sender = notify.NewSMTPSender(cfg.Notification.SMTP)
		}
	}

	err = sender.Send(ctx, msg)
	report.NotifyError = err

	switch {
	case err != nil:
		logger.Error("Notification failed", "error", err)
		fmt.Fprintln(opts.Out, cli.Error("Notification failed: "+err.Error()))
	case dry:
		fmt.Fprintln(opts.Out, cli.Warning("Notification not sent (dry run), would go to "+strings.Join(recipients, ", ")))
		return
	default:
		report.Notified = true
		fmt.Fprintln(opts.Out, cli.Success("Notification sent to "+strings.Join(recipients, ", ")))
	}

	if dry {
		return
	}

	sink, err := activitylog.Open(ctx, cfg.ActivityLog)
	if err != nil {
		logger.Warn("Activity log unavailable", "error", err)
		return
	}
	defer sink.Close()

	entries := activitylog.BuildEntries(unique(names), unique(numbers), msg.To, msg.CC, msg.Subject, report.Notified, time.Now())
	if err := sink.Log(ctx, entries); err != nil {
		logger.Warn("Failed to record notification activity", "error", err)
	}
}

func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
