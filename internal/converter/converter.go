// =============================================================================
// Ack File Processor - Converter Module
// =============================================================================
//
// This module runs the processing pipeline for a single ack file, from CSV
// parsing to writing the corrected file.
//
// PROCESSING PIPELINE:
//   1. Parse the input CSV file
//   2. Transform the records (see transformer.go)
//   3. Derive the output file name
//   4. Write the output file
//   5. Archive the processed files
//
// CONCURRENCY:
//   Each file may be processed in its own goroutine. The mapping table and
//   file manager are shared; the former is read-only and the latter guards
//   its own state.
//
// =============================================================================

package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/ack-file-processor/internal/config"
	"github.com/ginjaninja78/ack-file-processor/internal/csvparser"
	"github.com/ginjaninja78/ack-file-processor/internal/recordset"
	"github.com/ginjaninja78/ack-file-processor/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the corrected ack file.
	// In dry-run mode this is the path that would have been written.
	// This is empty if processing failed.
	OutputFile string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	// This is nil if processing was successful.
	Error error

	// Summary lists the agents and reasons found in the output.
	Summary Summary

	// Coverage is the error mapping report, nil when mapping did not run.
	Coverage *CoverageReport

	// MappingError is set when the error mapping engine failed and the
	// records were written unmapped.
	MappingError error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows read.
	RowsProcessed int

	// ColumnsDropped is the number of fixed columns removed.
	ColumnsDropped int

	// CosignRows is the number of rows whose property address was cleared.
	CosignRows int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the processing of a single ack file.
type Converter struct {
	// csvPath is the path to the input CSV file.
	csvPath string

	// mainConfig is the main application configuration.
	mainConfig *config.MainConfig

	// options configures the transform pipeline.
	options Options

	// files resolves output paths and archives processed files.
	files *utils.FileManager

	// dryRun skips writing and archiving.
	dryRun bool

	logger Logger
}

// Logger is an interface for logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - csvPath: The path to the input CSV file.
//   - mainConfig: The main application configuration.
//   - options: Transform options shared by every file in the run.
//   - files: The run's file manager.
//
// RETURNS:
//   - A new Converter instance logging through slog.Default.
func New(csvPath string, mainConfig *config.MainConfig, options Options, files *utils.FileManager) *Converter {
	return &Converter{
		csvPath:    csvPath,
		mainConfig: mainConfig,
		options:    options,
		files:      files,
		logger:     slog.Default().With("file", filepath.Base(csvPath)),
	}
}

// WithLogger replaces the converter's logger.
func (c *Converter) WithLogger(logger Logger) *Converter {
	c.logger = logger
	return c
}

// WithDryRun toggles dry-run mode: the pipeline runs in full but nothing is
// written or archived.
func (c *Converter) WithDryRun(dryRun bool) *Converter {
	c.dryRun = dryRun
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the processing pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing. Errors are
//     reported in the result, never raised.
func (c *Converter) Run() Result {
	startTime := time.Now()
	result := Result{FilePath: c.csvPath}

	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	// =========================================================================
	// STEP 1: PARSE INPUT CSV
	// =========================================================================

	c.logger.Info("Processing file")

	records, err := csvparser.Parse(c.csvPath, c.mainConfig.CSVSettings)
	if err != nil {
		result.Error = err
		c.logger.Error("Failed to parse file", "error", err)
		return result
	}

	result.Stats.RowsProcessed = records.Len()
	c.logger.Debug("Parsed CSV", "rows", records.Len(), "columns", records.Width())

	// =========================================================================
	// STEP 2: TRANSFORM
	// =========================================================================

	opts := c.options
	opts.File = filepath.Base(c.csvPath)

	output, err := Transform(records, opts)
	if err != nil {
		result.Error = err
		c.logger.Error("Failed to transform file", "error", err)
		return result
	}

	result.Stats.ColumnsDropped = len(output.Dropped)
	result.Stats.CosignRows = output.CosignRows

	if output.Mapping != nil {
		c.logMapping(output.Mapping)
		if output.Mapping.Err != nil {
			result.MappingError = output.Mapping.Err
		} else if !output.Mapping.Report.Skipped {
			report := output.Mapping.Report
			result.Coverage = &report
		}
	}

	// =========================================================================
	// STEP 3: DERIVE OUTPUT NAME
	// =========================================================================

	result.Summary = Summarize(output.Records)

	name := GenerateFilename(output.Records, c.mainConfig.Output.Year, c.mainConfig.Output.Month,
		fallbackName(c.csvPath))

	// =========================================================================
	// STEP 4: WRITE OUTPUT FILE
	// =========================================================================

	// Reserved in dry runs too, so previews show the same collision suffixes.
	outputPath := c.files.ReserveOutputPath(name)

	if c.dryRun {
		result.OutputFile = outputPath
		result.Success = true
		c.logger.Info("Dry run, output not written", "output", filepath.Base(outputPath))
		return result
	}

	if err := c.writeOutput(output.Records, outputPath); err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		c.logger.Error("Failed to write output", "error", err)
		return result
	}

	result.OutputFile = outputPath
	result.Success = true
	c.logger.Info("Wrote output", "output", outputPath)

	// =========================================================================
	// STEP 5: ARCHIVE FILES
	// =========================================================================

	if err := c.archiveFiles(outputPath); err != nil {
		// Archive failures do not undo a successful write.
		c.logger.Warn("Failed to archive files", "error", err)
	}

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) logMapping(res *EngineResult) {
	switch {
	case res.Err != nil:
		c.logger.Warn("Error mapping failed, records left unmapped", "error", res.Err)
	case res.Report.Skipped:
		c.logger.Debug("Error mapping skipped, Error_Type or isError column missing")
	default:
		c.logger.Info("Error mapping applied",
			"error_rows", res.Report.TotalErrorRows,
			"mapped", res.Report.MappedCount(),
			"composite", res.Report.ComposedMatches,
			"simple", res.Report.SimpleMatches)
		if len(res.Report.Unmatched) > 0 {
			c.logger.Warn("Unmapped error types", "error_types", res.Report.Display())
		}
	}
}

// writeOutput writes the records to a reserved output path.
func (c *Converter) writeOutput(records *recordset.RecordSet, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	if err := csvparser.Write(file, records); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// archiveFiles moves the input and copies the output into the archives.
func (c *Converter) archiveFiles(outputPath string) error {
	if _, err := c.files.ArchiveInputFile(c.csvPath); err != nil {
		return err
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return err
	}
	return nil
}

// fallbackName is the input file name, kept with its .csv extension.
func fallbackName(path string) string {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return name
}
