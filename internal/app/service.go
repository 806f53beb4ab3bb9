// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/spread/internal/adapters/repository"
	"github.com/okian/spread/internal/domain/dedupe"
	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/ledger"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
	"github.com/okian/spread/internal/domain/rating"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/search"
	"github.com/okian/spread/pkg/logger"
	"github.com/okian/spread/pkg/metrics"
)

// Service holds the ledger, the trial store and the latest fitted model.
type Service struct {
	mu sync.RWMutex

	// Core components
	ledger     *ledger.Ledger
	deduper    dedupe.Deduper
	store      repository.TrialStore
	controller *search.Controller
	pipeline   *predict.Pipeline
	lastRun    string

	// Serializes training runs; held with TryLock.
	trainMu sync.Mutex

	// Configuration
	workerCount int
	queueSize   int
	maxTrials   int
	folds       int
	shuffle     bool
	foldLimit   int
	samples     int
	seed        int64
	plan        search.Plan
	storeKind   string
	storeDSN    string

	// State
	started   bool
	trainings int

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of trial workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count >= 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the trial queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxTrials bounds candidates per search stage.
func WithMaxTrials(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTrials = n
		}
	}
}

// WithFolds sets the cross-validation fold count and shuffling.
func WithFolds(k int, shuffle bool) Option {
	return func(s *Service) {
		s.folds = k
		s.shuffle = shuffle
	}
}

// WithFoldParallelism bounds concurrent folds per candidate.
func WithFoldParallelism(n int) Option {
	return func(s *Service) {
		s.foldLimit = n
	}
}

// WithSamples sets the regressor sample size.
func WithSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.samples = n
		}
	}
}

// WithSeed seeds every random choice of a training run.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithPlan sets the rating grid, form settings and regressor to train.
func WithPlan(p search.Plan) Option {
	return func(s *Service) {
		s.plan = p
	}
}

// WithTrialStore selects the trial store kind and its DSN.
func WithTrialStore(kind, dsn string) Option {
	return func(s *Service) {
		s.storeKind = kind
		s.storeDSN = dsn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize: 64,
		maxTrials: 200,
		folds:     5,
		foldLimit: 2,
		samples:   20,
		seed:      1,
		plan: search.Plan{
			Grid:       search.DefaultGrid(),
			FormWindow: form.DefaultWindow,
			Stats:      []string{"pts", "reb", "ast", "tov"},
			Regressor:  regressor.NameRidge,
		},
		storeKind: repository.KindMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the trial store and readies an empty ledger.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting spread service...")

	store, err := repository.Open(ctx, s.storeKind, s.storeDSN)
	if err != nil {
		return fmt.Errorf("open trial store: %w", err)
	}
	l, err := ledger.New(ctx, nil)
	if err != nil {
		_ = store.Close()
		return err
	}

	s.store = store
	s.ledger = l
	s.deduper = dedupe.NewInMemoryDeduper()
	s.controller = search.NewController(
		search.WithWorkers(s.workerCount),
		search.WithQueueSize(s.queueSize),
		search.WithMaxTrials(s.maxTrials),
		search.WithFolds(s.folds),
		search.WithShuffle(s.shuffle),
		search.WithFoldParallelism(s.foldLimit),
		search.WithSamples(s.samples),
		search.WithSeed(s.seed),
		search.WithStore(store),
		search.WithLogger(s.logger.Named("search")),
	)
	s.started = true

	s.logger.Info(ctx, "spread service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("trialStore", s.storeKind),
		logger.String("regressor", s.plan.Regressor),
	)
	return nil
}

// Stop closes the trial store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "error closing trial store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "spread service stopped")
}

// AddMatches appends a batch to the ledger. The batch is validated as a
// whole; matches already in the ledger reject the batch with a
// *DuplicateMatchError and nothing is added.
func (s *Service) AddMatches(ctx context.Context, batch []model.Match) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, ErrNotStarted
	}
	if err := ledger.Validate(ctx, batch); err != nil {
		metrics.RecordErrorByComponent("service", "invalid_match")
		return 0, err
	}

	keys := make([]model.MatchKey, len(batch))
	for i, m := range batch {
		keys[i] = m.Key()
	}
	if dups := s.deduper.RecordAll(ctx, keys); len(dups) > 0 {
		for range dups {
			metrics.RecordMatchDuplicate()
		}
		return 0, &DuplicateMatchError{Keys: dups}
	}

	next, err := s.ledger.Append(ctx, batch)
	if err != nil {
		for _, k := range keys {
			s.deduper.Unrecord(ctx, k)
		}
		return 0, err
	}
	s.ledger = next

	metrics.RecordMatchesIngested(len(batch))
	metrics.UpdateLedgerSize(next.Len(), len(next.Participants()))
	s.logger.Debug(ctx, "matches ingested",
		logger.Int("accepted", len(batch)),
		logger.Int("ledger", next.Len()),
	)
	return len(batch), nil
}

// Ledger returns the current ledger snapshot.
func (s *Service) Ledger() *ledger.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

// Size returns the number of ledger matches and participants.
func (s *Service) Size() (matches, participants int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return 0, 0
	}
	return s.ledger.Len(), len(s.ledger.Participants())
}

// Train runs both searches over the current ledger and installs the
// resulting model. Only one training runs at a time.
func (s *Service) Train(ctx context.Context) (*predict.FittedModel, error) {
	if !s.trainMu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer s.trainMu.Unlock()

	s.mu.RLock()
	started, l, c, plan := s.started, s.ledger, s.controller, s.plan
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	matches := l.Matches()
	out, err := c.Train(ctx, matches, plan)
	if err != nil {
		metrics.RecordErrorByComponent("service", "training_failed")
		s.logger.Error(ctx, "training failed", logger.Error(err))
		return nil, err
	}
	fm := predict.FromOutcome(out, matches)

	s.mu.Lock()
	s.pipeline = predict.NewPipeline(fm, predict.WithLogger(s.logger.Named("predict")))
	s.lastRun = out.RunID
	s.trainings++
	s.mu.Unlock()
	return fm, nil
}

// Model returns the fitted model, or predict.ErrNoModel.
func (s *Service) Model() (*predict.FittedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pipeline == nil {
		return nil, predict.ErrNoModel
	}
	return s.pipeline.Model(), nil
}

// Predict forecasts entries with the latest model.
func (s *Service) Predict(ctx context.Context, entries []model.ScheduleEntry) ([]predict.Result, error) {
	s.mu.RLock()
	p := s.pipeline
	s.mu.RUnlock()
	if p == nil {
		return nil, predict.ErrNoModel
	}
	return p.Predict(ctx, entries)
}

// Ratings returns up to limit standings of the latest model, best first.
func (s *Service) Ratings(_ context.Context, limit int) ([]predict.Standing, error) {
	fm, err := s.Model()
	if err != nil {
		return nil, err
	}
	st := fm.Standings()
	if limit > 0 && limit < len(st) {
		st = st[:limit]
	}
	return st, nil
}

// Rating returns one participant's standing, its rank and trajectory.
func (s *Service) Rating(_ context.Context, participant string) (predict.Standing, int, []rating.Point, error) {
	fm, err := s.Model()
	if err != nil {
		return predict.Standing{}, 0, nil, err
	}
	for i, st := range fm.Standings() {
		if st.Participant == participant {
			return st, i + 1, fm.Trajectory(participant), nil
		}
	}
	return predict.Standing{}, 0, nil, fmt.Errorf("%q: %w", participant, ErrUnknownParticipant)
}

// Trials returns the ranked trials of the last run's stage.
func (s *Service) Trials(ctx context.Context, stage string, limit int) ([]model.Trial, error) {
	if stage != search.StageRating && stage != search.StageRegressor {
		return nil, fmt.Errorf("%q: %w", stage, ErrUnknownStage)
	}
	s.mu.RLock()
	run, store := s.lastRun, s.store
	s.mu.RUnlock()
	if run == "" {
		return nil, ErrNoRun
	}
	trials, err := store.TopN(ctx, run, stage, limit)
	if errors.Is(err, repository.ErrInvalidLimit) {
		return nil, fmt.Errorf("%w: %w", err, model.ErrConfiguration)
	}
	return trials, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"trialStore":  s.storeKind,
		"regressor":   s.plan.Regressor,
		"trainings":   s.trainings,
	}
	if s.started {
		stats["matches"] = s.ledger.Len()
		stats["participants"] = len(s.ledger.Participants())
		stats["seasons"] = s.ledger.Seasons()
		stats["dedupeSize"] = s.deduper.Size()
		metrics.UpdateLedgerSize(s.ledger.Len(), len(s.ledger.Participants()))
	}
	if s.pipeline != nil {
		fm := s.pipeline.Model()
		stats["modelId"] = fm.ID
		stats["lastRun"] = s.lastRun
		stats["trainedAt"] = fm.TrainedAt.Format(time.RFC3339)
		stats["cvRmse"] = fm.CVRMSE
	}
	return stats
}
