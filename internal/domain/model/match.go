// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// MatchKey identifies a match. MatchID is unique within a season.
type MatchKey struct {
	Season  string
	MatchID string
}

func (k MatchKey) String() string {
	return fmt.Sprintf("%s/%s", k.Season, k.MatchID)
}

// Match is one completed match between a home and an away participant.
// Stats hold each side's box-score line keyed by stat name.
type Match struct {
	Season    string
	MatchID   string
	Date      time.Time
	Home      string
	Away      string
	HomeScore int
	AwayScore int
	HomeStats map[string]float64
	AwayStats map[string]float64
}

// Key returns the identity of the match.
func (m Match) Key() MatchKey {
	return MatchKey{Season: m.Season, MatchID: m.MatchID}
}

// Margin is the home score minus the away score.
func (m Match) Margin() float64 {
	return float64(m.HomeScore - m.AwayScore)
}

// HomeWon reports whether the home side scored more. Ties count as a loss.
func (m Match) HomeWon() bool {
	return m.HomeScore > m.AwayScore
}

// Side returns the stat line and opponent for participant p.
func (m Match) Side(p string) (stats map[string]float64, opponent string, ok bool) {
	switch p {
	case m.Home:
		return m.HomeStats, m.Away, true
	case m.Away:
		return m.AwayStats, m.Home, true
	}
	return nil, "", false
}

// TeamRow is the per-participant representation of a match: two rows, one
// flagged as home, describe a single Match.
type TeamRow struct {
	Season  string
	MatchID string
	Date    time.Time
	Team    string
	IsHome  bool
	Score   int
	Stats   map[string]float64
}

// ScheduleEntry is a played or future fixture. Season and MatchID are
// optional for future fixtures; when Season is empty the entry is not
// scoped to a season.
type ScheduleEntry struct {
	Season  string
	MatchID string
	Date    time.Time
	Home    string
	Away    string
}

// Key returns the identity of the entry.
func (e ScheduleEntry) Key() MatchKey {
	return MatchKey{Season: e.Season, MatchID: e.MatchID}
}

// Entry converts a match into its schedule entry.
func (m Match) Entry() ScheduleEntry {
	return ScheduleEntry{Season: m.Season, MatchID: m.MatchID, Date: m.Date, Home: m.Home, Away: m.Away}
}
