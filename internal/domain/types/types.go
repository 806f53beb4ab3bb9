// Package types contains the JSON shapes shared by the HTTP API and its
// clients.
package types

import (
	"time"

	"github.com/okian/spread/internal/domain/model"
)

// Match is a completed match as submitted to POST /matches.
type Match struct {
	Season    string             `json:"season"`
	MatchID   string             `json:"match_id"`
	Date      time.Time          `json:"date"`
	Home      string             `json:"home"`
	Away      string             `json:"away"`
	HomeScore int                `json:"home_score"`
	AwayScore int                `json:"away_score"`
	HomeStats map[string]float64 `json:"home_stats,omitempty"`
	AwayStats map[string]float64 `json:"away_stats,omitempty"`
}

// Model converts the request shape to the domain match.
func (m Match) Model() model.Match {
	return model.Match{
		Season: m.Season, MatchID: m.MatchID, Date: m.Date,
		Home: m.Home, Away: m.Away,
		HomeScore: m.HomeScore, AwayScore: m.AwayScore,
		HomeStats: m.HomeStats, AwayStats: m.AwayStats,
	}
}

// FromMatch converts a domain match.
func FromMatch(m model.Match) Match {
	return Match{
		Season: m.Season, MatchID: m.MatchID, Date: m.Date,
		Home: m.Home, Away: m.Away,
		HomeScore: m.HomeScore, AwayScore: m.AwayScore,
		HomeStats: m.HomeStats, AwayStats: m.AwayStats,
	}
}

// Entry is an unplayed fixture as submitted to POST /predict.
type Entry struct {
	Season  string    `json:"season"`
	MatchID string    `json:"match_id"`
	Date    time.Time `json:"date"`
	Home    string    `json:"home"`
	Away    string    `json:"away"`
}

// Model converts the request shape to the domain entry.
func (e Entry) Model() model.ScheduleEntry {
	return model.ScheduleEntry{Season: e.Season, MatchID: e.MatchID, Date: e.Date, Home: e.Home, Away: e.Away}
}

// FromEntry converts a domain entry.
func FromEntry(e model.ScheduleEntry) Entry {
	return Entry{Season: e.Season, MatchID: e.MatchID, Date: e.Date, Home: e.Home, Away: e.Away}
}

// Forecast is one element of the POST /predict response. Exactly one of
// Margin or Error is meaningful.
type Forecast struct {
	Entry
	Margin      *float64 `json:"margin,omitempty"`
	HomeWinProb *float64 `json:"home_win_prob,omitempty"`
	HomeRating  *float64 `json:"home_rating,omitempty"`
	AwayRating  *float64 `json:"away_rating,omitempty"`
	Error       string   `json:"error,omitempty"`
	Participant string   `json:"participant,omitempty"`
}

// Standing is a rating leaderboard entry.
type Standing struct {
	Rank        int     `json:"rank"`
	Participant string  `json:"participant"`
	Season      string  `json:"season"`
	Rating      float64 `json:"rating"`
	Matches     int     `json:"matches"`
}

// RatingPoint is a participant's rating after one match.
type RatingPoint struct {
	Seq    int     `json:"seq"`
	Season string  `json:"season"`
	Rating float64 `json:"rating"`
}

// Trial is a ranked search trial.
type Trial struct {
	Rank   int                `json:"rank"`
	Seq    int                `json:"seq"`
	Params map[string]float64 `json:"params"`
	Loss   float64            `json:"loss"`
	Score  float64            `json:"score"`
	Error  string             `json:"error,omitempty"`
}

// ModelSummary describes a fitted model, returned by POST /train.
type ModelSummary struct {
	ID              string             `json:"id"`
	RunID           string             `json:"run_id"`
	TrainedAt       time.Time          `json:"trained_at"`
	RatingParams    map[string]float64 `json:"rating_params"`
	RatingAccuracy  float64            `json:"rating_accuracy"`
	Regressor       string             `json:"regressor"`
	RegressorParams map[string]float64 `json:"regressor_params"`
	CVRMSE          float64            `json:"cv_rmse"`
	Columns         []string           `json:"columns"`
	Rows            int                `json:"rows"`
	Excluded        int                `json:"excluded"`
	Warnings        []string           `json:"warnings,omitempty"`
}

// IngestResult is the POST /matches response.
type IngestResult struct {
	Accepted     int `json:"accepted"`
	Matches      int `json:"matches"`
	Participants int `json:"participants"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code  string   `json:"code"`
	Error string   `json:"error"`
	Keys  []string `json:"keys,omitempty"`
}
