package search

import (
	"github.com/okian/spread/internal/adapters/repository"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithWorkers sets the number of trial workers. Non-positive values use one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(c *Controller) {
		c.workers = n
	}
}

// WithQueueSize sets the trial queue capacity.
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithMaxTrials bounds the number of candidates evaluated per stage.
func WithMaxTrials(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTrials = n
		}
	}
}

// WithFolds sets the number of cross-validation folds.
func WithFolds(k int) Option {
	return func(c *Controller) {
		c.folds = k
	}
}

// WithShuffle shuffles rows before folding.
func WithShuffle(shuffle bool) Option {
	return func(c *Controller) {
		c.shuffle = shuffle
	}
}

// WithSeed seeds candidate sampling and fold shuffling.
func WithSeed(seed int64) Option {
	return func(c *Controller) {
		c.seed = seed
	}
}

// WithSamples sets the regressor sample size.
func WithSamples(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.samples = n
		}
	}
}

// WithFoldParallelism bounds how many folds of one candidate fit at once.
func WithFoldParallelism(n int) Option {
	return func(c *Controller) {
		c.foldLimit = n
	}
}

// WithStore sets the trial store.
func WithStore(s repository.TrialStore) Option {
	return func(c *Controller) {
		if s != nil {
			c.store = s
		}
	}
}

// WithRegistry sets the regressor registry.
func WithRegistry(r *regressor.Registry) Option {
	return func(c *Controller) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}
