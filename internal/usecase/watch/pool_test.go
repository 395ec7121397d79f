package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/domain"
)

func TestPoolProcessesSubmittedTasks(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	pool := NewPool(2, 8, func() Handler {
		return func(_ context.Context, task Task) {
			mu.Lock()
			seen = append(seen, task.DocumentID)
			mu.Unlock()
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		task := Task{UpdateTask: domain.UpdateTask{DocumentID: id, Collection: "notes"}}
		if err := pool.Submit(ctx, task); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	waitUntil(t, "all tasks handled", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 5
	})

	cancel()
	done := make(chan struct{})
	go func() { pool.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool workers did not exit")
	}
}

func TestPoolBuildsOneHandlerPerWorker(t *testing.T) {
	var built atomic.Int32
	pool := NewPool(3, 8, func() Handler {
		built.Add(1)
		return func(context.Context, Task) {}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	waitUntil(t, "three handlers built", func() bool { return built.Load() == 3 })
}

func TestPoolSubmitFailsAfterCancel(t *testing.T) {
	pool := NewPool(1, 1, func() Handler { return func(context.Context, Task) {} }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the queue first so the canceled context is what unblocks Submit.
	pool.queue <- Task{}
	if err := pool.Submit(ctx, Task{}); err == nil {
		t.Error("expected an error submitting after cancel")
	}
}

func TestPoolDefaults(t *testing.T) {
	pool := NewPool(0, 0, func() Handler { return func(context.Context, Task) {} }, zap.NewNop())
	if pool.workers != 4 {
		t.Errorf("default workers = %d, want 4", pool.workers)
	}
	if cap(pool.queue) != 256 {
		t.Errorf("default queue size = %d, want 256", cap(pool.queue))
	}
}
