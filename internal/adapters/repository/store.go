// Package repository stores evaluated search trials ranked by loss.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
)

// TrialStore records trials and answers ranking queries per run and stage.
// Trials are immutable once recorded. Ranking is loss ascending, then
// sample position ascending; failed trials rank after every successful one.
type TrialStore interface {
	// Record stores a trial. Recording the same (run, stage, seq) twice
	// returns ErrDuplicate.
	Record(ctx context.Context, t model.Trial) error

	// Best returns the best successful trial. Returns ErrNotFound when the
	// stage has no successful trial.
	Best(ctx context.Context, runID, stage string) (model.Trial, error)

	// TopN returns up to n trials in rank order.
	TopN(ctx context.Context, runID, stage string, n int) ([]model.Trial, error)

	// Count returns the number of trials recorded for the stage.
	Count(ctx context.Context, runID, stage string) (int, error)

	Close() error
}

// Kinds of stores selectable by configuration.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// Open returns the trial store of the given kind. dsn is only used by the
// SQLite store.
func Open(ctx context.Context, kind, dsn string) (TrialStore, error) {
	switch kind {
	case "", KindMemory:
		return NewTreapStore(), nil
	case KindSQLite:
		if dsn == "" {
			dsn = MemoryDSN
		}
		return OpenSQLStore(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown trial store %q: %w", kind, model.ErrConfiguration)
}
