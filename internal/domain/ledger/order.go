package ledger

import (
	"sort"

	"github.com/okian/spread/internal/domain/model"
)

// Before is the canonical chronological order: date, then season, then
// match id. It is total for a ledger without duplicate keys.
func Before(a, b model.Match) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Season != b.Season {
		return a.Season < b.Season
	}
	return a.MatchID < b.MatchID
}

// Order returns a copy of matches in canonical order.
func Order(matches []model.Match) []model.Match {
	out := make([]model.Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool { return Before(out[i], out[j]) })
	return out
}
