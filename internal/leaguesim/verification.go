package leaguesim

import (
	"fmt"
	"log"

	"github.com/okian/spread/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

// verifyForecasts checks that every upcoming fixture got exactly one
// forecast, in order, and scores the predicted winners against the latent
// strengths.
func verifyForecasts(l *League, edge float64, forecasts []types.Forecast, stats *Stats) error {
	log.Println("🔍 Verifying forecasts...")

	if len(forecasts) != len(l.Upcoming) {
		return fmt.Errorf("got %d forecasts for %d fixtures", len(forecasts), len(l.Upcoming))
	}

	var right, called int
	for i, f := range forecasts {
		want := l.Upcoming[i]
		if f.Season != want.Season || f.MatchID != want.MatchID {
			return fmt.Errorf("forecast %d is for %s/%s, want %s", i, f.Season, f.MatchID, want.Key())
		}
		if f.Margin == nil {
			stats.EntriesMissing++
			continue
		}
		stats.EntriesPredicted++
		if f.HomeWinProb != nil && (*f.HomeWinProb < 0 || *f.HomeWinProb > 1) {
			return fmt.Errorf("forecast %s has win probability %.3f", want.Key(), *f.HomeWinProb)
		}
		expected := l.Strength[want.Home] - l.Strength[want.Away] + edge
		if expected == 0 {
			continue
		}
		called++
		if (*f.Margin > 0) == (expected > 0) {
			right++
		}
	}
	if called > 0 {
		stats.WinnerAccuracy = float64(right) / float64(called)
	}
	if stats.EntriesMissing > 0 {
		log.Printf("⚠️  %d fixtures had no forecast", stats.EntriesMissing)
	}
	log.Printf("✅ %d forecasts verified, winner accuracy %.1f%%",
		stats.EntriesPredicted, stats.WinnerAccuracy*PercentageMultiplier)
	return nil
}

// verifyRatings checks that the leaderboard is sorted and that ratings
// track the latent strengths.
func verifyRatings(l *League, standings []types.Standing, stats *Stats) error {
	log.Println("🔍 Verifying ratings...")

	if len(standings) == 0 {
		return fmt.Errorf("empty leaderboard")
	}
	for i := 1; i < len(standings); i++ {
		if standings[i].Rating > standings[i-1].Rating {
			return fmt.Errorf("leaderboard not properly sorted: entry %d rates above entry %d", i, i-1)
		}
		if standings[i].Rank <= standings[i-1].Rank {
			return fmt.Errorf("leaderboard ranks not increasing at entry %d", i)
		}
	}

	latent := make([]float64, 0, len(standings))
	rated := make([]float64, 0, len(standings))
	for _, s := range standings {
		v, ok := l.Strength[s.Participant]
		if !ok {
			return fmt.Errorf("leaderboard lists unknown participant %q", s.Participant)
		}
		latent = append(latent, v)
		rated = append(rated, s.Rating)
	}
	if len(standings) > 2 {
		stats.StrengthCorr = stat.Correlation(latent, rated, nil)
		if stats.StrengthCorr < minStrengthCorrelation {
			log.Printf("⚠️  ratings correlate weakly with latent strength: %.3f", stats.StrengthCorr)
		}
	}

	displayTopTeams(l, standings)
	log.Println("✅ Rating verification completed")
	return nil
}

func displayTopTeams(l *League, standings []types.Standing) {
	topN := 5
	if len(standings) < topN {
		topN = len(standings)
	}
	log.Printf("🏆 Top %d teams:", topN)
	for _, s := range standings[:topN] {
		log.Printf("   %2d. %s  rating %.1f  latent %+.2f  (%d matches)",
			s.Rank, s.Participant, s.Rating, l.Strength[s.Participant], s.Matches)
	}
}
