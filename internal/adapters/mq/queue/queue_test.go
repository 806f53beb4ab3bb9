package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/spread/internal/domain/model"
)

func task(seq int) Task {
	return Task{RunID: "run", Stage: "rating", Seq: seq, Params: model.Params{"update_rate": float64(seq)}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, task(1)); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Seq != 1 {
		t.Errorf("expected seq 1, got %d", got.Seq)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, task(i)); err != nil {
			t.Fatalf("expected enqueue to succeed: %v", err)
		}
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(short, task(3)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected enqueue on a full queue to wait for ctx, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_BlockingProducer(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()
	const n = 50

	go func() {
		for i := 0; i < n; i++ {
			if err := q.Enqueue(ctx, task(i)); err != nil {
				t.Errorf("enqueue %d: %v", i, err)
			}
		}
		_ = q.Close()
	}()

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range q.Dequeue(ctx) {
				mu.Lock()
				seen[tk.Seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d distinct tasks, got %d", n, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	_ = q.Enqueue(ctx, task(1))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
	if err := q.Enqueue(ctx, task(2)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []int
	for tk := range q.Dequeue(ctx) {
		drained = append(drained, tk.Seq)
	}
	if len(drained) != 1 || drained[0] != 1 {
		t.Errorf("expected queued task to be delivered after close, got %v", drained)
	}
}
