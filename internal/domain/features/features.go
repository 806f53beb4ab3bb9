// Package features joins rating, form and schedule state into leakage-free
// feature rows. Every value in the row of match M comes from the state each
// side had after its previous match of the same season.
package features

import (
	"context"
	"fmt"

	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/schedule"
	"github.com/okian/spread/pkg/metrics"
)

// Exclusion reasons.
const (
	ReasonNoPriorMatch   = "no_prior_match"
	ReasonIncompleteForm = "incomplete_form"
)

// Excluded names a match left out of the matrix.
type Excluded struct {
	Key    model.MatchKey
	Seq    int
	Side   string
	Reason string
}

// Exclusions reports every match without enough history.
type Exclusions struct {
	Matches []Excluded
	Counts  map[string]int
}

// Total is the number of excluded matches.
func (e Exclusions) Total() int { return len(e.Matches) }

// Set is an assembled feature matrix.
type Set struct {
	Columns    []string
	Rows       []model.FeatureRow
	Exclusions Exclusions
}

// Matrix returns the design matrix and margins.
func (s *Set) Matrix() (x [][]float64, y []float64) {
	x = make([][]float64, len(s.Rows))
	y = make([]float64, len(s.Rows))
	for i, r := range s.Rows {
		x[i] = r.Values
		y[i] = r.Target
	}
	return x, y
}

// Columns returns the column names for the tracked stats, in row order.
func Columns(stats []string) []string {
	cols := []string{"home_rating", "away_rating", "rating_diff", "rating_home_prob"}
	for _, prefix := range []string{"home_", "away_", "diff_"} {
		for _, s := range stats {
			cols = append(cols, prefix+s)
		}
	}
	return append(cols, "home_rest", "away_rest", "home_next", "away_next")
}

// Side is one participant's resolved state before a fixture.
type Side struct {
	Rating   float64
	Form     []float64
	Schedule schedule.Features
}

// Vector lays out a row's values in Columns order. Difference features are
// computed here, once both sides are resolved.
func Vector(home, away Side, homeAdvantage float64) []float64 {
	n := len(home.Form)
	v := make([]float64, 0, 8+3*n)
	v = append(v,
		home.Rating,
		away.Rating,
		home.Rating-away.Rating,
		rating.Expected(home.Rating, away.Rating, homeAdvantage),
	)
	v = append(v, home.Form...)
	v = append(v, away.Form...)
	for i := 0; i < n; i++ {
		v = append(v, home.Form[i]-away.Form[i])
	}
	return append(v,
		home.Schedule.RestDays,
		away.Schedule.RestDays,
		home.Schedule.NextGameDays,
		away.Schedule.NextGameDays,
	)
}

// Inputs are the per-run states the assembler joins.
type Inputs struct {
	Matches  []model.Match
	Ratings  *rating.Result
	Form     *form.Table
	Schedule *schedule.Table
}

// Assemble builds one row per match whose both sides have a prior match of
// the same season with a complete form snapshot.
func Assemble(ctx context.Context, in Inputs) (*Set, error) {
	if in.Ratings == nil || in.Form == nil || in.Schedule == nil {
		return nil, fmt.Errorf("assemble: ratings, form and schedule are required: %w", model.ErrConfiguration)
	}
	if len(in.Ratings.Steps) != len(in.Matches) {
		return nil, fmt.Errorf("assemble: replay covers %d of %d matches: %w",
			len(in.Ratings.Steps), len(in.Matches), model.ErrDataIntegrity)
	}

	set := &Set{
		Columns:    Columns(in.Form.Stats()),
		Rows:       make([]model.FeatureRow, 0, len(in.Matches)),
		Exclusions: Exclusions{Counts: make(map[string]int)},
	}
	exclude := func(m model.Match, seq int, side, reason string) {
		set.Exclusions.Matches = append(set.Exclusions.Matches, Excluded{Key: m.Key(), Seq: seq, Side: side, Reason: reason})
		set.Exclusions.Counts[reason]++
	}

	for seq, m := range in.Matches {
		if seq%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var sides [2]Side
		var sources [2]int
		ok := true
		for i, p := range []string{m.Home, m.Away} {
			prior, found := in.Ratings.History.After(p, seq)
			if !found || prior.Season != m.Season {
				exclude(m, seq, p, ReasonNoPriorMatch)
				ok = false
				break
			}
			snap, found := in.Form.At(p, prior.Seq)
			if !found {
				exclude(m, seq, p, ReasonIncompleteForm)
				ok = false
				break
			}
			sched, known := in.Schedule.Lookup(p, m.Date)
			if !known {
				sched = schedule.Features{RestDays: model.NoValue, NextGameDays: model.NoValue}
			}
			sides[i] = Side{Rating: prior.Rating, Form: snap.Means, Schedule: sched}
			sources[i] = prior.Seq
		}
		if !ok {
			continue
		}

		set.Rows = append(set.Rows, model.FeatureRow{
			Key:           m.Key(),
			Seq:           seq,
			Date:          m.Date,
			Home:          m.Home,
			Away:          m.Away,
			Values:        Vector(sides[0], sides[1], in.Ratings.Params.HomeAdvantage),
			HomeSourceSeq: sources[0],
			AwaySourceSeq: sources[1],
			Target:        m.Margin(),
		})
	}

	metrics.RecordFeatureRows(len(set.Rows), set.Exclusions.Counts)
	return set, nil
}
