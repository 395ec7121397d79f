package watch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
	"github.com/kailas-cloud/vecsync/internal/metrics"
)

// Task is one unit of incremental embedding work flowing from a coordinator
// to the worker pool. It carries the event's document snapshot so workers
// never re-read the store.
type Task struct {
	domain.UpdateTask
	Document document.Document
	Profile  profile.Profile
	Cursor   domain.WatchCursor
}

// Handler executes one task. Failures are terminal for the task; the
// document will be picked up again by a later event or backfill.
type Handler func(ctx context.Context, task Task)

// Pool is the bounded worker pool shared by all watched collections.
// Coordinators only enqueue; workers execute, which caps total provider
// concurrency regardless of how many collections are watched.
type Pool struct {
	queue      chan Task
	workers    int
	newHandler func() Handler
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewPool creates a worker pool with a bounded queue. newHandler is called
// once per worker, so handler-local state (pacing limiters) is per worker.
func NewPool(workers, queueSize int, newHandler func() Handler, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		queue:      make(chan Task, queueSize),
		workers:    workers,
		newHandler: newHandler,
		logger:     logger,
	}
}

// Start launches the workers. Workers run until the context is canceled and
// the queue is drained of whatever they had already picked up.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			handler := p.newHandler()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.queue:
					metrics.WorkerQueueDepth.Set(float64(len(p.queue)))
					handler(ctx, task)
				}
			}
		}()
	}
}

// Submit enqueues a task, blocking while the queue is full. Returns the
// context error if canceled while waiting.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.queue <- task:
		metrics.WorkerQueueDepth.Set(float64(len(p.queue)))
		return nil
	}
}

// Wait blocks until all workers have exited. Callers bound the grace period
// by canceling the context and timing out on Wait themselves.
func (p *Pool) Wait() {
	p.wg.Wait()
}
