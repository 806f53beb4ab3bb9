// Package rating implements the sequential Elo-style rating engine.
//
// A replay walks the ledger once in canonical order and owns its state; two
// replays never share anything, so candidates can run in parallel.
package rating

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/spread/internal/domain/ledger"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/pkg/metrics"
)

// Step describes one processed match. Pre ratings include any season
// regression; Post ratings are the state after the match.
type Step struct {
	Key      model.MatchKey
	Seq      int
	HomePre  float64
	AwayPre  float64
	Prob     float64
	HomePost float64
	AwayPost float64
	HomeWon  bool
}

// Point is a participant's rating after the match with the given Seq.
type Point struct {
	Seq    int
	Season string
	Rating float64
}

// History indexes post-match ratings per participant by Seq.
type History struct {
	points map[string][]Point
}

// After returns p's rating produced by its latest match with Seq strictly
// less than seq.
func (h *History) After(p string, seq int) (Point, bool) {
	pts := h.points[p]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Seq >= seq })
	if i == 0 {
		return Point{}, false
	}
	return pts[i-1], true
}

// Latest returns p's rating after its last match.
func (h *History) Latest(p string) (Point, bool) {
	pts := h.points[p]
	if len(pts) == 0 {
		return Point{}, false
	}
	return pts[len(pts)-1], true
}

// Points returns p's full trajectory in Seq order.
func (h *History) Points(p string) []Point {
	return append([]Point(nil), h.points[p]...)
}

// Final returns every participant's latest point.
func (h *History) Final() map[string]Point {
	out := make(map[string]Point, len(h.points))
	for p, pts := range h.points {
		out[p] = pts[len(pts)-1]
	}
	return out
}

// Result is the output of a replay.
type Result struct {
	Params  Params
	Steps   []Step
	History *History
}

// Probs returns the rating-implied home win probability per match.
func (r *Result) Probs() []float64 {
	out := make([]float64, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Prob
	}
	return out
}

// Accuracy is the share of matches whose winner was predicted, calling the
// home side whenever its probability is at least one half.
func (r *Result) Accuracy() float64 {
	if len(r.Steps) == 0 {
		return 0
	}
	hits := 0
	for _, s := range r.Steps {
		if (s.Prob >= 0.5) == s.HomeWon {
			hits++
		}
	}
	return float64(hits) / float64(len(r.Steps))
}

type state struct {
	rating float64
	season string
}

// Replay processes matches in canonical order. The matches must already be
// ordered (a Ledger guarantees this); out-of-order input is rejected.
func Replay(ctx context.Context, matches []model.Match, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	ratings := make(map[string]*state)
	res := &Result{
		Params:  p,
		Steps:   make([]Step, 0, len(matches)),
		History: &History{points: make(map[string][]Point)},
	}

	lookup := func(name, season string) *state {
		s, ok := ratings[name]
		if !ok {
			s = &state{rating: Baseline, season: season}
			ratings[name] = s
			return s
		}
		if s.season != season {
			s.rating = Regress(s.rating, p.SeasonRegression)
			s.season = season
		}
		return s
	}

	for i, m := range matches {
		if i > 0 && ledger.Before(m, matches[i-1]) {
			return nil, fmt.Errorf("match %s is out of order: %w", m.Key(), model.ErrDataIntegrity)
		}
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		home := lookup(m.Home, m.Season)
		away := lookup(m.Away, m.Season)

		step := Step{
			Key:     m.Key(),
			Seq:     i,
			HomePre: home.rating,
			AwayPre: away.rating,
			HomeWon: m.HomeWon(),
		}
		step.Prob = Expected(home.rating, away.rating, p.HomeAdvantage)

		actual := 0.0
		if step.HomeWon {
			actual = 1
		}
		delta := p.UpdateRate * (actual - step.Prob)
		home.rating += delta
		away.rating -= delta

		step.HomePost = home.rating
		step.AwayPost = away.rating
		res.Steps = append(res.Steps, step)
		res.History.points[m.Home] = append(res.History.points[m.Home], Point{Seq: i, Season: m.Season, Rating: home.rating})
		res.History.points[m.Away] = append(res.History.points[m.Away], Point{Seq: i, Season: m.Season, Rating: away.rating})
	}

	metrics.RecordReplay(float64(time.Since(start).Microseconds()) / 1000)
	return res, nil
}
