package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/pkg/metrics"
)

// Treap-based, in-memory TrialStore implementation.
//
// Ordering follows model.Trial.Less: loss ASC, then seq ASC, failed last.
// In-order traversal yields the ranking from best to worst.

type node struct {
	trial model.Trial
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// mix is splitmix64; priorities derive from the seq so a replayed run
// builds the same tree.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func insert(n *node, t model.Trial, prio uint64) *node {
	if n == nil {
		return &node{trial: t, prio: prio, size: 1}
	}
	if t.Less(n.trial) {
		n.left = insert(n.left, t, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, t, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectTopN appends up to limit trials in rank order.
func collectTopN(n *node, limit int, out *[]model.Trial) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.trial)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

func first(n *node) *node {
	for n != nil && n.left != nil {
		n = n.left
	}
	return n
}

type stageKey struct {
	run   string
	stage string
}

type ranking struct {
	root *node
	seqs map[int]struct{}
}

// TreapStore keeps one treap per (run, stage).
type TreapStore struct {
	mu     sync.RWMutex
	seed   uint64
	byKey  map[stageKey]*ranking
	closed bool
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byKey: make(map[stageKey]*ranking)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements TrialStore.Record with O(log n) expected time.
func (s *TreapStore) Record(_ context.Context, t model.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	k := stageKey{run: t.RunID, stage: t.Stage}
	r, ok := s.byKey[k]
	if !ok {
		r = &ranking{seqs: make(map[int]struct{})}
		s.byKey[k] = r
	}
	if _, dup := r.seqs[t.Seq]; dup {
		return fmt.Errorf("%s/%s #%d: %w", t.RunID, t.Stage, t.Seq, ErrDuplicate)
	}
	t.Params = t.Params.Clone()
	r.seqs[t.Seq] = struct{}{}
	r.root = insert(r.root, t, mix(s.seed^uint64(t.Seq)))

	metrics.UpdateStoreRecords(t.Stage, len(r.seqs))
	return nil
}

// Best implements TrialStore.Best.
func (s *TreapStore) Best(_ context.Context, runID, stage string) (model.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byKey[stageKey{run: runID, stage: stage}]
	if !ok {
		return model.Trial{}, fmt.Errorf("%s/%s: %w", runID, stage, ErrNotFound)
	}
	n := first(r.root)
	if n == nil || n.trial.Failed() {
		return model.Trial{}, fmt.Errorf("%s/%s has no successful trial: %w", runID, stage, ErrNotFound)
	}
	return n.trial, nil
}

// TopN implements TrialStore.TopN.
func (s *TreapStore) TopN(_ context.Context, runID, stage string, n int) ([]model.Trial, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit %d: %w", n, ErrInvalidLimit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byKey[stageKey{run: runID, stage: stage}]
	if !ok {
		return []model.Trial{}, nil
	}
	out := make([]model.Trial, 0, min(n, nsize(r.root)))
	collectTopN(r.root, n, &out)
	return out, nil
}

// Count implements TrialStore.Count.
func (s *TreapStore) Count(_ context.Context, runID, stage string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byKey[stageKey{run: runID, stage: stage}]
	if !ok {
		return 0, nil
	}
	return nsize(r.root), nil
}

// Close rejects further writes. Reads keep working.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
