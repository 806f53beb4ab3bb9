// Package config defines service configuration and its validation.
//
// Values are layered: defaults from New, then an optional YAML file named by
// SPREAD_CONFIG, then SPREAD_* environment variables.
package config

import (
	"fmt"
	"slices"

	"github.com/okian/spread/internal/adapters/repository"
	"github.com/okian/spread/internal/domain/form"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/regressor"
	"github.com/okian/spread/internal/domain/search"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of trial workers. Zero uses one per CPU.
	WorkerCount int `koanf:"worker_count"`

	// TrialQueueSize bounds the queue between the search and its workers.
	TrialQueueSize int `koanf:"trial_queue_size"`

	// Seed drives regressor sampling, fold shuffling and tree subsampling.
	Seed int64 `koanf:"seed"`

	FormWindow int      `koanf:"form_window"`
	FormStats  []string `koanf:"form_stats"`

	Folds           int  `koanf:"folds"`
	ShuffleFolds    bool `koanf:"shuffle_folds"`
	FoldParallelism int  `koanf:"fold_parallelism"`

	// Regressor names the model tuned in the second stage.
	Regressor        string `koanf:"regressor"`
	RegressorSamples int    `koanf:"regressor_samples"`

	// MaxTrials bounds the candidates evaluated per stage.
	MaxTrials int `koanf:"max_trials"`

	RatingGrid search.RatingGrid `koanf:"rating_grid"`

	// RegressorRanges overrides the declared search ranges by parameter name.
	RegressorRanges map[string]regressor.Range `koanf:"regressor_ranges"`

	// TrialStore is "memory" or "sqlite"; TrialStoreDSN is the SQLite path.
	TrialStore    string `koanf:"trial_store"`
	TrialStoreDSN string `koanf:"trial_store_dsn"`

	// MaxListLimit caps the limit of list endpoints.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		TrialQueueSize:   64,
		Seed:             1,
		FormWindow:       form.DefaultWindow,
		FormStats:        []string{"pts", "reb", "ast", "tov"},
		Folds:            5,
		FoldParallelism:  2,
		Regressor:        regressor.NameRidge,
		RegressorSamples: 20,
		MaxTrials:        200,
		RatingGrid:       search.DefaultGrid(),
		TrialStore:       repository.KindMemory,
		MaxListLimit:     100,
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"text", "json"}
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, fmt.Sprintf(format, args...), model.ErrConfiguration)
}

// Validate rejects settings no training run could use.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case !slices.Contains(logLevels, c.LogLevel):
		return invalid("unknown log_level %q", c.LogLevel)
	case !slices.Contains(logFormats, c.LogFormat):
		return invalid("unknown log_format %q", c.LogFormat)
	case c.WorkerCount < 0:
		return invalid("worker_count %d is negative", c.WorkerCount)
	case c.TrialQueueSize < 1:
		return invalid("trial_queue_size %d must be positive", c.TrialQueueSize)
	case c.Folds < 2:
		return invalid("folds %d must be at least 2", c.Folds)
	case c.RegressorSamples < 1:
		return invalid("regressor_samples %d must be positive", c.RegressorSamples)
	case c.MaxTrials < 1:
		return invalid("max_trials %d must be positive", c.MaxTrials)
	case c.MaxListLimit < 1:
		return invalid("max_list_limit %d must be positive", c.MaxListLimit)
	case c.TrialStore != repository.KindMemory && c.TrialStore != repository.KindSQLite:
		return invalid("unknown trial_store %q", c.TrialStore)
	}
	if err := form.Validate(c.FormWindow, c.FormStats); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.RatingGrid.Candidates(); err != nil {
		return fmt.Errorf("%w: rating_grid: %w", ErrInvalidConfig, err)
	}
	reg, err := regressor.Default(c.Seed).Get(c.Regressor)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := reg.Space().Merge(c.RegressorRanges); err != nil {
		return fmt.Errorf("%w: regressor_ranges: %w", ErrInvalidConfig, err)
	}
	return nil
}
