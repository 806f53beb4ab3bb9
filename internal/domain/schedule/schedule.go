// Package schedule derives rest and next-game day counts from fixtures.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/spread/internal/domain/model"
)

const day = 24 * time.Hour

// Features are one participant's schedule values for one fixture. Values
// that cannot be computed hold model.NoValue.
type Features struct {
	RestDays     float64
	NextGameDays float64
}

type slot struct {
	team string
	day  time.Time
}

type appearance struct {
	day    time.Time
	season string
}

// Table answers schedule lookups by participant and calendar day.
type Table struct {
	bySlot map[slot]Features
}

// Truncate reduces t to its UTC calendar day.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Derive computes Features for both participants of every entry. Played and
// future fixtures may be mixed. An entry with a Season only looks at
// neighbours in the same season or without one.
func Derive(entries []model.ScheduleEntry) (*Table, error) {
	byTeam := make(map[string][]appearance)
	for _, e := range entries {
		d := Truncate(e.Date)
		for _, p := range []string{e.Home, e.Away} {
			byTeam[p] = append(byTeam[p], appearance{day: d, season: e.Season})
		}
	}

	t := &Table{bySlot: make(map[slot]Features, 2*len(entries))}
	for team, apps := range byTeam {
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].day.Before(apps[j].day) })
		for i := 1; i < len(apps); i++ {
			if apps[i].day.Equal(apps[i-1].day) {
				return nil, fmt.Errorf("%s has two fixtures on %s: %w",
					team, apps[i].day.Format(time.DateOnly), model.ErrDataIntegrity)
			}
		}
		for i, a := range apps {
			f := Features{RestDays: model.NoValue, NextGameDays: model.NoValue}
			for j := i - 1; j >= 0; j-- {
				if compatible(a.season, apps[j].season) {
					f.RestDays = days(apps[j].day, a.day)
					break
				}
			}
			for j := i + 1; j < len(apps); j++ {
				if compatible(a.season, apps[j].season) {
					f.NextGameDays = days(a.day, apps[j].day)
					break
				}
			}
			t.bySlot[slot{team: team, day: a.day}] = f
		}
	}
	return t, nil
}

func compatible(a, b string) bool {
	return a == "" || b == "" || a == b
}

func days(from, to time.Time) float64 {
	return float64(to.Sub(from) / day)
}

// Lookup returns p's features for its fixture on date's calendar day.
func (t *Table) Lookup(p string, date time.Time) (Features, bool) {
	f, ok := t.bySlot[slot{team: p, day: Truncate(date)}]
	return f, ok
}

// ForEntry returns both sides' features, falling back to NoValue for
// participants the table has not seen on that day.
func (t *Table) ForEntry(e model.ScheduleEntry) (home, away Features) {
	none := Features{RestDays: model.NoValue, NextGameDays: model.NoValue}
	home, ok := t.Lookup(e.Home, e.Date)
	if !ok {
		home = none
	}
	away, ok = t.Lookup(e.Away, e.Date)
	if !ok {
		away = none
	}
	return home, away
}
