// Package dedupe tracks match identities so a (season, match id) pair is
// accepted into the ledger at most once.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/spread/internal/domain/model"
)

// Deduper records seen match keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key model.MatchKey) bool

	// RecordAll records a batch all-or-nothing. When any key was seen before
	// or repeats inside the batch, nothing is recorded and the offending keys
	// are returned in batch order.
	RecordAll(ctx context.Context, keys []model.MatchKey) []model.MatchKey

	// Unrecord forgets a key, allowing it to be recorded again.
	Unrecord(ctx context.Context, key model.MatchKey)

	Size() int64
}

type inMemoryDeduper struct {
	mu   sync.RWMutex
	seen map[model.MatchKey]struct{}
	hint int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[model.MatchKey]struct{}, d.hint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key model.MatchKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) RecordAll(_ context.Context, keys []model.MatchKey) []model.MatchKey {
	d.mu.Lock()
	defer d.mu.Unlock()

	var dups []model.MatchKey
	batch := make(map[model.MatchKey]struct{}, len(keys))
	for _, k := range keys {
		_, before := d.seen[k]
		_, repeated := batch[k]
		if before || repeated {
			dups = append(dups, k)
			continue
		}
		batch[k] = struct{}{}
	}
	if len(dups) > 0 {
		return dups
	}
	for k := range batch {
		d.seen[k] = struct{}{}
	}
	return nil
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key model.MatchKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.seen))
}
