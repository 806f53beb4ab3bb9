package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/pkg/metrics"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// SQLStore persists trials in SQLite so a run's ranking survives restarts.
type SQLStore struct {
	db            *sql.DB
	mu            sync.Mutex
	busyTimeoutMs int
}

// OpenSQLStore opens (or creates) the trial database at path.
func OpenSQLStore(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	s := &SQLStore{busyTimeoutMs: 5000}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != MemoryDSN && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(%d)", path, s.busyTimeoutMs)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS trials (
			run_id      TEXT    NOT NULL,
			stage       TEXT    NOT NULL,
			seq         INTEGER NOT NULL,
			params      TEXT    NOT NULL,
			loss        REAL    NOT NULL,
			score       REAL    NOT NULL,
			failed      INTEGER NOT NULL,
			err         TEXT    NOT NULL,
			recorded_at TEXT    NOT NULL,
			PRIMARY KEY (run_id, stage, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trials_rank ON trials(run_id, stage, failed, loss, seq)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	s.db = db
	return s, nil
}

// Record implements TrialStore.Record.
func (s *SQLStore) Record(ctx context.Context, t model.Trial) error {
	params, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	failed := 0
	if t.Failed() {
		failed = 1
	}
	if t.RecordedAt.IsZero() {
		t.RecordedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trials WHERE run_id = ? AND stage = ? AND seq = ?`,
		t.RunID, t.Stage, t.Seq).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check trial: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%s/%s #%d: %w", t.RunID, t.Stage, t.Seq, ErrDuplicate)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trials (run_id, stage, seq, params, loss, score, failed, err, recorded_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.RunID, t.Stage, t.Seq, string(params), t.Loss, t.Score, failed, t.Err,
		t.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trials WHERE run_id = ? AND stage = ?`, t.RunID, t.Stage).Scan(&n); err == nil {
		metrics.UpdateStoreRecords(t.Stage, n)
	}
	return nil
}

const selectTrials = `SELECT run_id, stage, seq, params, loss, score, err, recorded_at FROM trials
	WHERE run_id = ? AND stage = ?`

// Best implements TrialStore.Best.
func (s *SQLStore) Best(ctx context.Context, runID, stage string) (model.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return model.Trial{}, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, selectTrials+` AND failed = 0 ORDER BY loss ASC, seq ASC LIMIT 1`, runID, stage)
	t, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trial{}, fmt.Errorf("%s/%s has no successful trial: %w", runID, stage, ErrNotFound)
	}
	return t, err
}

// TopN implements TrialStore.TopN.
func (s *SQLStore) TopN(ctx context.Context, runID, stage string, n int) ([]model.Trial, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit %d: %w", n, ErrInvalidLimit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, selectTrials+` ORDER BY failed ASC, loss ASC, seq ASC LIMIT ?`, runID, stage, n)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	out := make([]model.Trial, 0, n)
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count implements TrialStore.Count.
func (s *SQLStore) Count(ctx context.Context, runID, stage string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trials WHERE run_id = ? AND stage = ?`, runID, stage).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrial(sc scanner) (model.Trial, error) {
	var (
		t        model.Trial
		params   string
		recorded string
	)
	if err := sc.Scan(&t.RunID, &t.Stage, &t.Seq, &params, &t.Loss, &t.Score, &t.Err, &recorded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan trial: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &t.Params); err != nil {
		return t, fmt.Errorf("decode params: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, recorded)
	if err != nil {
		return t, fmt.Errorf("decode recorded_at: %w", err)
	}
	t.RecordedAt = ts
	return t, nil
}
