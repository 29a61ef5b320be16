package boutsim

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/ringside/pkg/logger"
)

// SetupLogging sends logs to stdout and, when logFile is set, to that file as well.
// The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var (
		w       io.Writer = os.Stdout
		closeFn           = func() {}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	if err := initLogger(w, verbose); err != nil {
		closeFn()
		return nil, err
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the bout simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Ringside Bout Simulator
=======================

Drives synthetic bouts against a running scoring server. Every judge entry is
resubmitted concurrently to exercise idempotent ingestion, every detected action
is seen by several cameras to exercise fusion, and each round's ledger and each
bout's audit chain are verified before the bout is closed.

Usage:
  go run ./cmd/bout-sim [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -bouts int          Number of bouts (default 3)
  -rounds int         Rounds per bout (default 3)
  -events int         Judge entries per round (default 60)
  -actions int        Detected actions per round (default 40)
  -cameras int        Cameras per bout (default 3)
  -retries int        Extra resubmissions of every judge entry (default 2)
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 30s)
  -output string      Write the generated plan to this JSON file
  -log string         Also write logs to this file
  -verbose            Enable debug logging
  -help               Show this help message
`)
}

func initLogger(w io.Writer, verbose bool) error {
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}
