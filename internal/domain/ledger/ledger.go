// Package ledger holds the validated, chronologically ordered match history.
// The position of a match in a Ledger is its Seq.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/pkg/logger"
)

// Ledger is read-only after construction.
type Ledger struct {
	matches []model.Match
	index   map[model.MatchKey]int
	seasons []string
	teams   []string
}

// New validates and orders matches.
func New(ctx context.Context, matches []model.Match) (*Ledger, error) {
	if err := Validate(ctx, matches); err != nil {
		return nil, err
	}
	ordered := Order(matches)

	l := &Ledger{
		matches: ordered,
		index:   make(map[model.MatchKey]int, len(ordered)),
	}
	seenSeason := make(map[string]bool)
	seenTeam := make(map[string]bool)
	for i, m := range ordered {
		l.index[m.Key()] = i
		if !seenSeason[m.Season] {
			seenSeason[m.Season] = true
			l.seasons = append(l.seasons, m.Season)
		}
		for _, p := range []string{m.Home, m.Away} {
			if !seenTeam[p] {
				seenTeam[p] = true
				l.teams = append(l.teams, p)
			}
		}
	}
	sort.Strings(l.teams)

	logger.Get().Debug(ctx, "ledger built",
		logger.Int("matches", len(ordered)),
		logger.Int("participants", len(l.teams)),
		logger.Int("seasons", len(l.seasons)),
	)
	return l, nil
}

// Append returns a new ledger holding the current matches plus batch.
func (l *Ledger) Append(ctx context.Context, batch []model.Match) (*Ledger, error) {
	all := make([]model.Match, 0, l.Len()+len(batch))
	all = append(all, l.Matches()...)
	all = append(all, batch...)
	nl, err := New(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("append %d matches: %w", len(batch), err)
	}
	return nl, nil
}

// Matches returns the ordered matches. Callers must not modify the slice.
func (l *Ledger) Matches() []model.Match {
	if l == nil {
		return nil
	}
	return l.matches
}

// Len returns the number of matches.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.matches)
}

// Seq returns the canonical position of key.
func (l *Ledger) Seq(key model.MatchKey) (int, bool) {
	if l == nil {
		return 0, false
	}
	i, ok := l.index[key]
	return i, ok
}

// Participants returns every participant in name order.
func (l *Ledger) Participants() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.teams...)
}

// Seasons returns seasons in the order they first appear chronologically.
func (l *Ledger) Seasons() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.seasons...)
}

// Schedule returns the played matches as schedule entries.
func (l *Ledger) Schedule() []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, 0, l.Len())
	for _, m := range l.Matches() {
		out = append(out, m.Entry())
	}
	return out
}
