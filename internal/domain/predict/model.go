// Package predict turns a training outcome into forecasts for unplayed
// fixtures.
package predict

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/schedule"
	"github.com/okian/spread/internal/domain/search"
)

// FittedModel is everything a forecast needs: the winning parameters, the
// fitted regressor and the end-of-ledger state of every participant. It is
// immutable and safe for concurrent use.
type FittedModel struct {
	ID              string
	RunID           string
	TrainedAt       time.Time
	RatingParams    rating.Params
	RatingAccuracy  float64
	Regressor       string
	RegressorParams model.Params
	Columns         []string
	Stats           []string
	FormWindow      int
	CVRMSE          float64
	Rows            int
	Excluded        int
	Warnings        []string

	model   regressor.Model
	history *rating.History
	form    *form.Table
	played  []model.ScheduleEntry
	keys    map[model.MatchKey]struct{}
}

// Standing is a participant's rating after its last played match.
type Standing struct {
	Participant string
	Season      string
	Rating      float64
	Matches     int
}

// FromOutcome freezes a training outcome. matches are the ordered matches
// the run was trained on; their fixtures feed schedule features of future
// entries.
func FromOutcome(out *search.Outcome, matches []model.Match) *FittedModel {
	fm := &FittedModel{
		ID:              uuid.NewString(),
		RunID:           out.RunID,
		TrainedAt:       time.Now().UTC(),
		RatingParams:    out.RatingParams,
		RatingAccuracy:  out.Rating.Best.Score,
		Regressor:       out.RegressorName,
		RegressorParams: out.RegressorParams.Clone(),
		Columns:         append([]string(nil), out.Features.Columns...),
		Stats:           out.Form.Stats(),
		FormWindow:      out.Form.Window(),
		CVRMSE:          out.CVRMSE,
		Rows:            len(out.Features.Rows),
		Excluded:        out.Features.Exclusions.Total(),
		model:           out.Model,
		history:         out.Replay.History,
		form:            out.Form,
		played:          make([]model.ScheduleEntry, len(matches)),
		keys:            make(map[model.MatchKey]struct{}, len(matches)),
	}
	for i, m := range matches {
		fm.played[i] = m.Entry()
		fm.keys[m.Key()] = struct{}{}
	}
	for _, w := range out.Warnings {
		fm.Warnings = append(fm.Warnings, w.Error())
	}
	return fm
}

// Standings returns every participant's latest rating, best first. Equal
// ratings sort by name.
func (fm *FittedModel) Standings() []Standing {
	final := fm.history.Final()
	out := make([]Standing, 0, len(final))
	for p, pt := range final {
		out = append(out, Standing{
			Participant: p,
			Season:      pt.Season,
			Rating:      pt.Rating,
			Matches:     len(fm.history.Points(p)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Participant < out[j].Participant
	})
	return out
}

// Standing returns p's latest rating.
func (fm *FittedModel) Standing(p string) (Standing, bool) {
	pt, ok := fm.history.Latest(p)
	if !ok {
		return Standing{}, false
	}
	return Standing{Participant: p, Season: pt.Season, Rating: pt.Rating, Matches: len(fm.history.Points(p))}, true
}

// lastPlayed returns the day of p's most recent played match.
func (fm *FittedModel) lastPlayed(p string) (time.Time, bool) {
	pt, ok := fm.history.Latest(p)
	if !ok || pt.Seq >= len(fm.played) {
		return time.Time{}, false
	}
	return schedule.Truncate(fm.played[pt.Seq].Date), true
}

// Trajectory returns p's rating after each of its matches.
func (fm *FittedModel) Trajectory(p string) []rating.Point {
	return fm.history.Points(p)
}
