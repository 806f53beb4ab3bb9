// Package search tunes the rating engine and the regressor.
//
// Training runs two stages. The rating stage replays the ledger once per
// grid point and keeps the most accurate parameters. The regressor stage
// assembles features under the winning ratings and cross-validates a Latin
// hypercube sample of the regressor's space. Candidates of a stage are
// evaluated on a worker pool and ranked in a trial store; picking the winner
// is a reduction over that store.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/spread/internal/adapters/mq/queue"
	"github.com/okian/spread/internal/adapters/mq/worker"
	"github.com/okian/spread/internal/adapters/repository"
	"github.com/okian/spread/internal/domain/features"
	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/schedule"
	"github.com/okian/spread/pkg/logger"
	"github.com/okian/spread/pkg/metrics"
)

// Stage names as recorded in the trial store.
const (
	StageRating    = metrics.StageRating
	StageRegressor = metrics.StageRegressor
)

const (
	defaultFolds     = 5
	defaultSamples   = 20
	defaultMaxTrials = 200
	defaultQueueSize = 64
)

// Controller runs searches. It holds no per-run state and may run several
// searches at once; runs are told apart by their run ID.
type Controller struct {
	workers   int
	queueSize int
	maxTrials int
	folds     int
	shuffle   bool
	seed      int64
	samples   int
	foldLimit int

	store    repository.TrialStore
	registry *regressor.Registry
	logger   logger.Logger
}

// NewController creates a controller with configuration options.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		queueSize: defaultQueueSize,
		maxTrials: defaultMaxTrials,
		folds:     defaultFolds,
		samples:   defaultSamples,
		logger:    logger.Get().Named("search"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = repository.NewTreapStore()
	}
	if c.registry == nil {
		c.registry = regressor.Default(c.seed)
	}
	return c
}

// Store returns the trial store the controller records into.
func (c *Controller) Store() repository.TrialStore { return c.store }

// Registry returns the regressor registry.
func (c *Controller) Registry() *regressor.Registry { return c.registry }

// StageResult summarizes one stage of a run.
type StageResult struct {
	Stage     string
	Best      model.Trial
	Baseline  float64
	Trials    int
	Exhausted bool
}

// Plan is everything a training run needs besides the ledger.
type Plan struct {
	Grid       RatingGrid
	FormWindow int
	Stats      []string
	Regressor  string
	Ranges     map[string]regressor.Range
}

// Outcome is the result of a training run.
type Outcome struct {
	RunID           string
	Rating          StageResult
	Regressor       StageResult
	RatingParams    rating.Params
	Replay          *rating.Result
	Form            *form.Table
	Features        *features.Set
	RegressorName   string
	RegressorParams model.Params
	Model           regressor.Model
	CVRMSE          float64
	Warnings        []error
	Took            time.Duration
}

// Train runs both stages over matches, which must be in canonical order,
// and fits the winning regressor on every assembled row. Configuration is
// checked before any replay. A cancelled context stops the run between
// trials.
func (c *Controller) Train(ctx context.Context, matches []model.Match, plan Plan) (out *Outcome, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.RecordTrainingRun(outcome, time.Since(start).Seconds())
	}()

	grid, err := plan.Grid.Candidates()
	if err != nil {
		return nil, err
	}
	if err := form.Validate(plan.FormWindow, plan.Stats); err != nil {
		return nil, err
	}
	reg, err := c.registry.Get(plan.Regressor)
	if err != nil {
		return nil, err
	}
	space, err := reg.Space().Merge(plan.Ranges)
	if err != nil {
		return nil, err
	}
	if c.folds < 2 {
		return nil, fmt.Errorf("%w: k=%d must be at least 2: %w", ErrFolds, c.folds, model.ErrConfiguration)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("train: empty ledger: %w", model.ErrInsufficientHistory)
	}

	out = &Outcome{RunID: uuid.NewString(), RegressorName: reg.Name()}
	log := c.logger.Named(out.RunID[:8])
	log.Info(ctx, "training started",
		logger.Int("matches", len(matches)),
		logger.Int("grid", len(grid)),
		logger.String("regressor", reg.Name()),
	)

	// Form and schedule do not depend on any tuned parameter.
	ft, err := form.Compute(ctx, matches, plan.FormWindow, plan.Stats)
	if err != nil {
		return nil, err
	}
	entries := make([]model.ScheduleEntry, len(matches))
	for i, m := range matches {
		entries[i] = m.Entry()
	}
	st, err := schedule.Derive(entries)
	if err != nil {
		return nil, err
	}
	out.Form = ft

	out.Rating, err = c.SearchRatings(ctx, out.RunID, matches, grid)
	if err != nil {
		return nil, err
	}
	if out.Rating.Exhausted {
		out.Warnings = append(out.Warnings, exhausted(StageRating, out.Rating))
	}
	out.RatingParams = rating.FromModel(out.Rating.Best.Params)
	out.Replay, err = rating.Replay(ctx, matches, out.RatingParams)
	if err != nil {
		return nil, err
	}

	out.Features, err = features.Assemble(ctx, features.Inputs{
		Matches:  matches,
		Ratings:  out.Replay,
		Form:     ft,
		Schedule: st,
	})
	if err != nil {
		return nil, err
	}
	if n := out.Features.Exclusions.Total(); n > 0 {
		log.Info(ctx, "matches excluded for insufficient history",
			logger.Int("excluded", n),
			logger.Int("rows", len(out.Features.Rows)),
		)
	}

	x, y := out.Features.Matrix()
	out.Regressor, err = c.SearchRegressor(ctx, out.RunID, reg, space, x, y)
	if err != nil {
		return nil, err
	}
	if out.Regressor.Exhausted {
		out.Warnings = append(out.Warnings, exhausted(StageRegressor, out.Regressor))
	}
	out.RegressorParams = out.Regressor.Best.Params
	out.CVRMSE = out.Regressor.Best.Loss

	out.Model, err = reg.Fit(ctx, x, y, out.RegressorParams)
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}
	out.Took = time.Since(start)

	log.Info(ctx, "training finished",
		logger.String("rating_params", out.Rating.Best.Params.String()),
		logger.Float64("accuracy", out.Rating.Best.Score),
		logger.String("regressor_params", out.RegressorParams.String()),
		logger.Float64("cv_rmse", out.CVRMSE),
		logger.Duration("took", out.Took),
	)
	return out, nil
}

func exhausted(stage string, r StageResult) error {
	return fmt.Errorf("%s search: best loss %.4f does not beat baseline %.4f: %w",
		stage, r.Best.Loss, r.Baseline, model.ErrSearchExhausted)
}

// SearchRatings evaluates grid points against matches. The baseline is the
// accuracy of always picking the home side.
func (c *Controller) SearchRatings(ctx context.Context, runID string, matches []model.Match,
	grid []rating.Params,
) (StageResult, error) {
	cands := make([]model.Params, len(grid))
	for i, p := range grid {
		cands[i] = p.Model()
	}

	res := StageResult{Stage: StageRating, Baseline: homeRate(matches)}
	var err error
	res.Trials, res.Best, err = c.run(ctx, runID, StageRating, cands, &ratingEvaluator{matches: matches})
	if err != nil {
		return res, err
	}
	res.Exhausted = res.Best.Score <= res.Baseline
	if res.Exhausted {
		metrics.RecordSearchExhausted(StageRating)
		c.logger.Warn(ctx, "rating search did not beat always-home",
			logger.Float64("accuracy", res.Best.Score),
			logger.Float64("baseline", res.Baseline),
		)
	}
	return res, nil
}

func homeRate(matches []model.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	n := 0
	for _, m := range matches {
		if m.HomeWon() {
			n++
		}
	}
	return float64(n) / float64(len(matches))
}

// SearchRegressor cross-validates a Latin hypercube sample of space. Every
// candidate uses the same folds. The baseline is the CV error of predicting
// the training-fold mean.
func (c *Controller) SearchRegressor(ctx context.Context, runID string, reg regressor.Regressor,
	space regressor.Space, x [][]float64, y []float64,
) (StageResult, error) {
	res := StageResult{Stage: StageRegressor}

	folds, err := KFold(len(x), c.folds, c.shuffle, c.seed)
	if err != nil {
		return res, err
	}
	base, err := CrossValidate(ctx, regressor.NewMean(), x, y, folds, nil, c.foldLimit)
	if err != nil {
		return res, fmt.Errorf("baseline: %w", err)
	}
	res.Baseline = base.Mean

	cands, err := LatinHypercube(space, min(c.samples, c.maxTrials), c.seed)
	if err != nil {
		return res, err
	}
	eval := &regressorEvaluator{reg: reg, x: x, y: y, folds: folds, foldLimit: c.foldLimit}
	res.Trials, res.Best, err = c.run(ctx, runID, StageRegressor, cands, eval)
	if err != nil {
		return res, err
	}
	res.Exhausted = res.Best.Loss >= res.Baseline
	if res.Exhausted {
		metrics.RecordSearchExhausted(StageRegressor)
		c.logger.Warn(ctx, "regressor search did not beat the mean",
			logger.String("regressor", reg.Name()),
			logger.Float64("cv_rmse", res.Best.Loss),
			logger.Float64("baseline", res.Baseline),
		)
	}
	return res, nil
}

// run feeds candidates through a fresh queue and worker pool, then reads the
// winner back from the store.
func (c *Controller) run(ctx context.Context, runID, stage string, cands []model.Params,
	eval worker.Evaluator,
) (int, model.Trial, error) {
	if len(cands) > c.maxTrials {
		c.logger.Warn(ctx, "candidates truncated",
			logger.String("stage", stage),
			logger.Int("candidates", len(cands)),
			logger.Int("max_trials", c.maxTrials),
		)
		cands = cands[:c.maxTrials]
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(c.queueSize))
	pool := worker.NewPool(c.workers, q, eval, c.store, worker.WithLogger(c.logger.Named(stage)))
	pool.Start(ctx)

	var sendErr error
	for i, p := range cands {
		if sendErr = q.Enqueue(ctx, queue.Task{RunID: runID, Stage: stage, Seq: i, Params: p}); sendErr != nil {
			break
		}
	}
	if err := q.Close(); err != nil {
		c.logger.Error(ctx, "error closing trial queue", logger.Error(err))
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return 0, model.Trial{}, fmt.Errorf("%s search interrupted: %w", stage, err)
	}
	if sendErr != nil {
		return 0, model.Trial{}, fmt.Errorf("%s search: %w", stage, sendErr)
	}

	n, err := c.store.Count(ctx, runID, stage)
	if err != nil {
		return 0, model.Trial{}, err
	}
	best, err := c.store.Best(ctx, runID, stage)
	if errors.Is(err, repository.ErrNotFound) {
		return n, model.Trial{}, fmt.Errorf("%s: %d trials all failed: %w", stage, n, ErrNoCandidate)
	}
	if err != nil {
		return n, model.Trial{}, err
	}
	return n, best, nil
}
