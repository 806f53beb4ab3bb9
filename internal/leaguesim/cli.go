package leaguesim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/spread/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "league_sim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := logger.Configure(logger.FormatText, multiWriter); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the league simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Spread League Simulator
=======================

Generates a synthetic league with known team strengths, feeds it to a
running spread service, trains a model and checks its forecasts.

Usage:
  go run cmd/league-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -teams int
        Number of teams (default 12)
  -seasons int
        Number of seasons to play (default 2)
  -rounds int
        Rounds per season (default 30)
  -upcoming int
        Unplayed rounds to forecast (default 2)
  -home-edge float
        Points added to every home margin (default 3)
  -noise float
        Standard deviation of a match margin (default 10)
  -seed int
        Random seed (default 1)
  -batch int
        Matches per request (default 50)
  -workers int
        Number of concurrent submitters (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -train-timeout duration
        Timeout of the training request (default 10m)
  -top int
        Number of ratings to verify (default 50)
  -output string
        Output file for the generated league
  -log string
        Log file for run output (default: league_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/league-sim/main.go

  # A bigger league with a stronger home edge
  go run cmd/league-sim/main.go -teams 30 -seasons 3 -rounds 82 -home-edge 4

  # Keep the generated data
  go run cmd/league-sim/main.go -output league.json -verbose
`)
}
