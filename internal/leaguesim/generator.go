package leaguesim

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/okian/spread/internal/domain/model"
)

// League is a synthetic league: played matches in canonical order, the
// unplayed rounds that follow them, and every team's latent strength.
type League struct {
	Matches  []model.Match
	Upcoming []model.ScheduleEntry
	Strength map[string]float64
}

// Teams returns the team names of the league, in generation order.
func (l *League) Teams() []string {
	out := make([]string, 0, len(l.Strength))
	for i := 0; i < len(l.Strength); i++ {
		out = append(out, teamName(i))
	}
	return out
}

var epoch = time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)

// Generate builds a deterministic league from cfg. Every round pairs all
// teams with a circle schedule; a match margin is the strength difference
// plus the home edge plus normal noise. Box scores carry pts, reb, ast and
// tov, each loosely tied to the team's strength.
func Generate(cfg LeagueConfig) (*League, error) {
	if cfg.Teams < 2 || cfg.Seasons < 1 || cfg.Rounds < 1 || cfg.Upcoming < 0 {
		return nil, fmt.Errorf("league needs at least two teams, one season and one round: %w", model.ErrConfiguration)
	}
	teams := cfg.Teams + cfg.Teams%2

	rng := rand.New(rand.NewSource(cfg.Seed))
	l := &League{Strength: make(map[string]float64, teams)}
	for i := 0; i < teams; i++ {
		l.Strength[teamName(i)] = rng.NormFloat64() * cfg.Spread
	}

	day := epoch
	for s := 0; s < cfg.Seasons; s++ {
		season := fmt.Sprintf("%d", epoch.Year()+s)
		for r := 0; r < cfg.Rounds; r++ {
			for g, pair := range pairings(teams, r) {
				l.Matches = append(l.Matches, play(rng, cfg, season, matchID(s, r, g), day, pair, l.Strength))
			}
			day = day.Add(matchDayGap)
		}
		day = day.Add(seasonGap)
	}

	// Upcoming rounds continue the last season.
	day = day.Add(-seasonGap)
	last := fmt.Sprintf("%d", epoch.Year()+cfg.Seasons-1)
	for r := 0; r < cfg.Upcoming; r++ {
		for g, pair := range pairings(teams, cfg.Rounds+r) {
			l.Upcoming = append(l.Upcoming, model.ScheduleEntry{
				Season:  last,
				MatchID: matchID(cfg.Seasons-1, cfg.Rounds+r, g),
				Date:    day,
				Home:    teamName(pair[0]),
				Away:    teamName(pair[1]),
			})
		}
		day = day.Add(matchDayGap)
	}
	return l, nil
}

// generateLeague is the runner step wrapping Generate.
func generateLeague(ctx context.Context, config *Config, stats *Stats) (*League, error) {
	log.Printf("🎲 Generating %d seasons of %d rounds for %d teams...",
		config.League.Seasons, config.League.Rounds, config.League.Teams)

	l, err := Generate(config.League)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats.MatchesGenerated = len(l.Matches)
	log.Printf("✅ Generated %d matches and %d upcoming fixtures", len(l.Matches), len(l.Upcoming))
	return l, nil
}

func play(rng *rand.Rand, cfg LeagueConfig, season, id string, day time.Time, pair [2]int, strength map[string]float64) model.Match {
	home, away := teamName(pair[0]), teamName(pair[1])
	margin := strength[home] - strength[away] + cfg.HomeEdge + rng.NormFloat64()*cfg.Noise
	margin = math.Round(margin)
	if margin == 0 {
		// Overtime.
		margin = 1
		if rng.Intn(2) == 0 {
			margin = -1
		}
	}
	total := 2*baseScore + math.Round(rng.NormFloat64()*8)
	hs := int(math.Round((total + margin) / 2))
	as := hs - int(margin)

	return model.Match{
		Season:    season,
		MatchID:   id,
		Date:      day,
		Home:      home,
		Away:      away,
		HomeScore: hs,
		AwayScore: as,
		HomeStats: boxScore(rng, hs, strength[home]),
		AwayStats: boxScore(rng, as, strength[away]),
	}
}

func boxScore(rng *rand.Rand, pts int, strength float64) map[string]float64 {
	return map[string]float64{
		"pts": float64(pts),
		"reb": math.Round(44 + strength/3 + rng.NormFloat64()*4),
		"ast": math.Round(24 + strength/4 + rng.NormFloat64()*3),
		"tov": math.Max(0, math.Round(14-strength/5+rng.NormFloat64()*3)),
	}
}

// pairings returns round r of a circle-method round robin over n teams.
// Team 0 stays fixed while the others rotate; home sides swap every round.
func pairings(n, r int) [][2]int {
	rot := make([]int, n)
	rot[0] = 0
	for i := 1; i < n; i++ {
		rot[i] = 1 + (i-1+r)%(n-1)
	}
	out := make([][2]int, 0, n/2)
	for i := 0; i < n/2; i++ {
		a, b := rot[i], rot[n-1-i]
		if (r+i)%2 == 1 {
			a, b = b, a
		}
		out = append(out, [2]int{a, b})
	}
	return out
}

func teamName(i int) string { return fmt.Sprintf("T%02d", i+1) }

func matchID(season, round, game int) string {
	return fmt.Sprintf("s%d-r%03d-g%02d", season+1, round+1, game+1)
}
