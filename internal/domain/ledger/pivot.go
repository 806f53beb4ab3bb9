package ledger

import (
	"fmt"

	"github.com/okian/spread/internal/domain/model"
)

// Pivot folds the two-rows-per-match representation into Match records.
// Matches are returned in the order their first row appears. Every key must
// carry exactly one home row and one away row with the same date.
func Pivot(rows []model.TeamRow) ([]model.Match, error) {
	type pair struct {
		home, away *model.TeamRow
	}
	groups := make(map[model.MatchKey]*pair)
	order := make([]model.MatchKey, 0, len(rows)/2)

	for i := range rows {
		r := &rows[i]
		k := model.MatchKey{Season: r.Season, MatchID: r.MatchID}
		p, ok := groups[k]
		if !ok {
			p = &pair{}
			groups[k] = p
			order = append(order, k)
		}
		slot := &p.away
		if r.IsHome {
			slot = &p.home
		}
		if *slot != nil {
			side := "away"
			if r.IsHome {
				side = "home"
			}
			return nil, fmt.Errorf("match %s has two %s rows: %w", k, side, model.ErrDataIntegrity)
		}
		*slot = r
	}

	out := make([]model.Match, 0, len(order))
	for _, k := range order {
		p := groups[k]
		if p.home == nil || p.away == nil {
			return nil, fmt.Errorf("match %s needs one home and one away row: %w", k, model.ErrDataIntegrity)
		}
		if !p.home.Date.Equal(p.away.Date) {
			return nil, fmt.Errorf("match %s rows disagree on date: %w", k, model.ErrDataIntegrity)
		}
		out = append(out, model.Match{
			Season:    k.Season,
			MatchID:   k.MatchID,
			Date:      p.home.Date,
			Home:      p.home.Team,
			Away:      p.away.Team,
			HomeScore: p.home.Score,
			AwayScore: p.away.Score,
			HomeStats: cloneStats(p.home.Stats),
			AwayStats: cloneStats(p.away.Stats),
		})
	}
	return out, nil
}

func cloneStats(s map[string]float64) map[string]float64 {
	if s == nil {
		return nil
	}
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
