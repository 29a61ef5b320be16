package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/ringside/internal/boutsim"
)

// Default configuration constants.
const (
	defaultBouts       = 3
	defaultRounds      = 3
	defaultEvents      = 60
	defaultActions     = 40
	defaultCameras     = 3
	defaultRetries     = 2
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		bouts      = flag.Int("bouts", defaultBouts, "Number of bouts")
		rounds     = flag.Int("rounds", defaultRounds, "Rounds per bout")
		events     = flag.Int("events", defaultEvents, "Judge entries per round")
		actions    = flag.Int("actions", defaultActions, "Detected actions per round")
		cameras    = flag.Int("cameras", defaultCameras, "Cameras per bout")
		retries    = flag.Int("retries", defaultRetries, "Extra resubmissions of every judge entry")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated plan to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		boutsim.ShowHelp()
		return
	}

	closeLog, err := boutsim.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &boutsim.Config{
		BaseURL:         *baseURL,
		Bouts:           *bouts,
		Rounds:          *rounds,
		EventsPerRound:  *events,
		ActionsPerRound: *actions,
		Cameras:         *cameras,
		Retries:         *retries,
		Workers:         *workers,
		Timeout:         *timeout,
		OutputFile:      *outputFile,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	if _, err := boutsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		closeLog()
		os.Exit(1)
	}
}
