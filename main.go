// =============================================================================
// Ack File Processor - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Ack File Processor CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   ackproc process       - Process all ack files in the input directory
//   ackproc validate      - Validate configuration and lookup tables
//   ackproc version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//   - pkg/           : Contains shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ack-file-processor/cmd"
)

func main() {
	cmd.Execute()
}
