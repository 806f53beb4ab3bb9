package leaguesim

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/okian/spread/internal/domain/types"
	"github.com/okian/spread/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run generates a league, feeds it to the service, trains, forecasts the
// upcoming rounds and checks the answers against the latent strengths.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	runID := uuid.NewString()
	lg := logger.Get().Named("leaguesim")

	lg.Info(ctx, "starting league simulation",
		logger.String("run", runID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("teams", config.League.Teams),
		logger.Int("seasons", config.League.Seasons),
		logger.Int("rounds", config.League.Rounds),
		logger.Int("workers", config.Workers),
		logger.Any("seed", config.League.Seed),
		logger.Bool("verbose", config.Verbose))

	client := NewHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	lg.Info(ctx, "service is healthy")

	// Step 2: Generate the league
	league, err := generateLeague(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("league generation failed: %w", err)
	}

	// Step 3: Submit matches
	if err := submitMatches(ctx, config, league.Matches, stats); err != nil {
		return stats, fmt.Errorf("match submission failed: %w", err)
	}

	// Step 4: Train
	summary, err := train(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("training failed: %w", err)
	}
	lg.Info(ctx, "model trained",
		logger.String("model", summary.ID),
		logger.String("regressor", summary.Regressor),
		logger.Float64("cvRmse", summary.CVRMSE),
		logger.Float64("ratingAccuracy", summary.RatingAccuracy),
		logger.Int("warnings", len(summary.Warnings)))

	// Step 5: Forecast the upcoming rounds
	forecasts, err := client.Predict(ctx, league.Upcoming)
	if err != nil {
		return stats, fmt.Errorf("prediction failed: %w", err)
	}
	if err := verifyForecasts(league, config.League.HomeEdge, forecasts, stats); err != nil {
		return stats, fmt.Errorf("forecast verification failed: %w", err)
	}

	// Step 6: Check the leaderboard
	standings, err := client.Ratings(ctx, config.TopN)
	if err != nil {
		return stats, fmt.Errorf("rating retrieval failed: %w", err)
	}
	stats.RatingsRetrieved = len(standings)
	if err := verifyRatings(league, standings, stats); err != nil {
		return stats, fmt.Errorf("rating verification failed: %w", err)
	}

	// Step 7: Save the league
	if config.OutputFile != "" {
		if err := saveLeague(ctx, config.OutputFile, league); err != nil {
			lg.Warn(ctx, "failed to save league to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	lg.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func train(ctx context.Context, config *Config, stats *Stats) (types.ModelSummary, error) {
	tctx := ctx
	if config.TrainWait > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, config.TrainWait)
		defer cancel()
	}
	log.Println("🧠 Training...")
	start := time.Now()
	client := NewHTTPClient(config.BaseURL, config.TrainWait)
	summary, err := client.Train(tctx)
	stats.TrainingDuration = time.Since(start)
	return summary, err
}

// saveLeague writes the played matches and upcoming fixtures as JSON.
func saveLeague(ctx context.Context, filename string, l *League) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := struct {
		Matches  []types.Match      `json:"matches"`
		Upcoming []types.Entry      `json:"upcoming"`
		Strength map[string]float64 `json:"strength"`
	}{Strength: l.Strength}
	for _, m := range l.Matches {
		out.Matches = append(out.Matches, types.FromMatch(m))
	}
	for _, e := range l.Upcoming {
		out.Upcoming = append(out.Upcoming, types.FromEntry(e))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal league: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "league saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, matchesPerSecond float64
	if stats.MatchesSubmitted > 0 {
		acceptRate = float64(stats.MatchesAccepted) / float64(stats.MatchesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesAccepted", stats.MatchesAccepted),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("entriesPredicted", stats.EntriesPredicted),
		logger.Int("entriesMissing", stats.EntriesMissing),
		logger.Int("ratingsRetrieved", stats.RatingsRetrieved),
		logger.Float64("strengthCorrelation", stats.StrengthCorr),
		logger.Float64("winnerAccuracy", stats.WinnerAccuracy),
		logger.Duration("training", stats.TrainingDuration),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
