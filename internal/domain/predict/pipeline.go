package predict

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/spread/internal/domain/dedupe"
	"github.com/okian/spread/internal/domain/features"
	"github.com/okian/spread/internal/domain/ledger"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/schedule"
	"github.com/okian/spread/pkg/logger"
	"github.com/okian/spread/pkg/metrics"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result is the outcome for one requested entry: a forecast, or an error
// that wraps model.ErrInsufficientHistory.
type Result struct {
	Entry    model.ScheduleEntry
	Forecast *model.Forecast
	Err      error
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline forecasts unplayed fixtures with a fitted model.
type Pipeline struct {
	model  *FittedModel
	logger logger.Logger
}

// NewPipeline creates a pipeline over fm.
func NewPipeline(fm *FittedModel, opts ...Option) *Pipeline {
	p := &Pipeline{model: fm, logger: logger.Get().Named("predict")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the fitted model behind the pipeline.
func (p *Pipeline) Model() *FittedModel { return p.model }

// Predict returns one Result per entry, in input order. Each side's state
// is the one after its most recent played match. Entries that are malformed,
// repeated, already played or dated on or before a side's last played match
// abort the whole call with a data integrity error; entries without enough
// history get a MissingPriorDataError.
func (p *Pipeline) Predict(ctx context.Context, entries []model.ScheduleEntry) ([]Result, error) {
	if p.model == nil {
		return nil, ErrNoModel
	}
	fm := p.model

	seen := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(len(entries)))
	for _, e := range entries {
		if err := ledger.ValidateEntry(e); err != nil {
			return nil, err
		}
		if _, played := fm.keys[e.Key()]; played && e.MatchID != "" {
			return nil, fmt.Errorf("entry %s is already played: %w", e.Key(), model.ErrDataIntegrity)
		}
		if e.MatchID != "" && seen.SeenAndRecord(ctx, e.Key()) {
			return nil, fmt.Errorf("duplicate entry %s: %w", e.Key(), model.ErrDataIntegrity)
		}
		for _, pt := range []string{e.Home, e.Away} {
			if last, ok := fm.lastPlayed(pt); ok && !schedule.Truncate(e.Date).After(last) {
				return nil, fmt.Errorf("entry %s on %s is not after %s's last match on %s: %w",
					e.Key(), e.Date.Format(time.DateOnly), pt, last.Format(time.DateOnly), model.ErrDataIntegrity)
			}
		}
	}

	fixtures := make([]model.ScheduleEntry, 0, len(fm.played)+len(entries))
	fixtures = append(fixtures, fm.played...)
	fixtures = append(fixtures, entries...)
	sched, err := schedule.Derive(fixtures)
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(entries))
	var (
		rows [][]float64
		idx  []int
	)
	for i, e := range entries {
		out[i].Entry = e
		home, err := p.side(e, e.Home, sched)
		if err != nil {
			out[i].Err = err
			continue
		}
		away, err := p.side(e, e.Away, sched)
		if err != nil {
			out[i].Err = err
			continue
		}
		values := features.Vector(home, away, fm.RatingParams.HomeAdvantage)
		out[i].Forecast = &model.Forecast{
			Entry:      e,
			HomeRating: home.Rating,
			AwayRating: away.Rating,
			Values:     values,
		}
		rows = append(rows, values)
		idx = append(idx, i)
	}

	if len(rows) > 0 {
		margins, err := fm.model.Predict(rows)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", fm.Regressor, err)
		}
		for j, i := range idx {
			out[i].Forecast.Margin = margins[j]
			out[i].Forecast.HomeWinProb = WinProbability(margins[j], fm.CVRMSE)
		}
	}

	failed := len(entries) - len(rows)
	metrics.RecordPredictions(len(rows))
	if failed > 0 {
		p.logger.Info(ctx, "entries without prior data",
			logger.Int("entries", len(entries)),
			logger.Int("missing", failed),
		)
	}
	return out, nil
}

// side resolves participant pt's state before entry e.
func (p *Pipeline) side(e model.ScheduleEntry, pt string, sched *schedule.Table) (features.Side, error) {
	fm := p.model
	last, ok := fm.history.Latest(pt)
	if !ok {
		metrics.RecordPredictionFailure(ReasonNoPriorMatch)
		return features.Side{}, &MissingPriorDataError{Key: e.Key(), Participant: pt, Reason: ReasonNoPriorMatch}
	}
	// Form windows restart each season, so an entry in a season the participant
	// has not played yet has no complete window.
	snap, ok := fm.form.Latest(pt)
	if !ok || (e.Season != "" && e.Season != snap.Season) {
		metrics.RecordPredictionFailure(ReasonIncompleteForm)
		return features.Side{}, &MissingPriorDataError{Key: e.Key(), Participant: pt, Reason: ReasonIncompleteForm}
	}

	sf, known := sched.Lookup(pt, e.Date)
	if !known {
		sf = schedule.Features{RestDays: model.NoValue, NextGameDays: model.NoValue}
	}
	return features.Side{Rating: last.Rating, Form: snap.Means, Schedule: sf}, nil
}

// WinProbability is the chance the realized margin is positive when it is
// normally distributed around margin with standard deviation sigma. A
// non-positive sigma gives a hard call.
func WinProbability(margin, sigma float64) float64 {
	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		switch {
		case margin > 0:
			return 1
		case margin < 0:
			return 0
		}
		return 0.5
	}
	return distuv.Normal{Mu: 0, Sigma: sigma}.CDF(margin)
}
