package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/spread/internal/leaguesim"
)

// Default configuration constants.
const (
	defaultBatch        = 50
	defaultWorkers      = 4
	defaultTopN         = 50
	defaultTimeout      = 30 * time.Second
	defaultTrainTimeout = 10 * time.Minute
	defaultRunTimeout   = 20 * time.Minute
)

func main() {
	league := leaguesim.DefaultLeague()
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams        = flag.Int("teams", league.Teams, "Number of teams")
		seasons      = flag.Int("seasons", league.Seasons, "Number of seasons to play")
		rounds       = flag.Int("rounds", league.Rounds, "Rounds per season")
		upcoming     = flag.Int("upcoming", league.Upcoming, "Unplayed rounds to forecast")
		homeEdge     = flag.Float64("home-edge", league.HomeEdge, "Points added to every home margin")
		noise        = flag.Float64("noise", league.Noise, "Standard deviation of a match margin")
		seed         = flag.Int64("seed", league.Seed, "Random seed")
		batchSize    = flag.Int("batch", defaultBatch, "Matches per request")
		workers      = flag.Int("workers", defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		trainTimeout = flag.Duration("train-timeout", defaultTrainTimeout, "Timeout of the training request")
		topN         = flag.Int("top", defaultTopN, "Number of ratings to verify")
		outputFile   = flag.String("output", "", "Output file for the generated league")
		logFile      = flag.String("log", "", "Log file for run output (default: league_sim_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		leaguesim.ShowHelp()
		return
	}

	if err := leaguesim.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	league.Teams = *teams
	league.Seasons = *seasons
	league.Rounds = *rounds
	league.Upcoming = *upcoming
	league.HomeEdge = *homeEdge
	league.Noise = *noise
	league.Seed = *seed

	config := &leaguesim.Config{
		BaseURL:    *baseURL,
		League:     league,
		BatchSize:  *batchSize,
		Workers:    *workers,
		Timeout:    *timeout,
		TrainWait:  *trainTimeout,
		TopN:       *topN,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if _, err := leaguesim.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
