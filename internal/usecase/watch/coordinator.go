// Package watch supervises change feed subscriptions, one coordinator per
// collection, and feeds incremental embedding work into the shared worker
// pool. Coordinators never give up: a watcher that silently stops is a data
// staleness bug, so subscription errors always loop back to reconnect.
package watch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/metrics"
)

// State is the coordinator lifecycle state.
type State int32

// Coordinator states.
const (
	StateConnecting State = iota
	StateStreaming
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds coordinator settings.
type Config struct {
	// Quiescence is the loop-prevention window: events whose embedding record
	// is younger than this are treated as our own write-back and dropped.
	Quiescence     time.Duration
	ReconnectDelay time.Duration
}

// Coordinator supervises one collection's change subscription.
type Coordinator struct {
	collection string
	store      Watcher
	cursors    CursorRepo
	profiles   ProfileResolver
	pool       Submitter
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	state      atomic.Int32
	reconnects atomic.Int64
}

// NewCoordinator creates a coordinator for one collection.
func NewCoordinator(
	collection string,
	store Watcher,
	cursors CursorRepo,
	profiles ProfileResolver,
	pool Submitter,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Coordinator{
		collection: collection,
		store:      store,
		cursors:    cursors,
		profiles:   profiles,
		pool:       pool,
		cfg:        cfg,
		logger:     logger.With(zap.String("collection", collection)),
		now:        time.Now,
	}
}

// WithClock replaces the time source (test use).
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Reconnects returns the number of reconnect attempts so far.
func (c *Coordinator) Reconnects() int64 {
	return c.reconnects.Load()
}

// Run drives the state machine until the context is canceled. It only ever
// returns nil: every failure path leads back to Connecting after a delay.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		c.state.Store(int32(StateConnecting))

		cur, err := c.cursors.Load(ctx, c.collection)
		if err != nil {
			// A lost cursor only means subscribing from "now".
			c.logger.Warn("Failed to load watch cursor, starting fresh", zap.Error(err))
			cur = domain.WatchCursor{Collection: c.collection}
		}

		stream, err := c.store.Watch(ctx, c.collection, cur.ResumeToken)
		if err != nil {
			if ctx.Err() != nil {
				c.state.Store(int32(StateStopped))
				return nil
			}
			c.logger.Warn("Change subscription failed", zap.Error(err))
			if !c.reconnectWait(ctx) {
				return nil
			}
			continue
		}

		c.state.Store(int32(StateStreaming))
		c.logger.Info("Streaming changes",
			zap.Bool("resumed", len(cur.ResumeToken) > 0))

		streamErr := c.consume(ctx, stream)
		c.closeStream(stream)

		if ctx.Err() != nil {
			c.state.Store(int32(StateStopped))
			c.logger.Info("Watcher stopped")
			return nil
		}

		c.logger.Warn("Change stream broken", zap.Error(streamErr))
		if !c.reconnectWait(ctx) {
			return nil
		}
	}
}

// consume pumps events until the subscription fails or the context ends.
func (c *Coordinator) consume(ctx context.Context, stream db.ChangeStream) error {
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		c.handle(ctx, ev)
	}
}

// handle resolves one event into a task, a drop, or a logged failure.
// Every outcome advances the cursor: dropped events are committed work too.
func (c *Coordinator) handle(ctx context.Context, ev db.Event) {
	cur := domain.WatchCursor{Collection: c.collection, ResumeToken: ev.ResumeToken}

	doc := ev.Document
	if doc == nil {
		c.saveCursor(ctx, cur)
		return
	}

	// Loop prevention: an embedding record younger than the quiescence window
	// means this event was triggered by our own write-back.
	if rec, ok := doc.Record(); ok && c.now().Sub(rec.GeneratedAt) < c.cfg.Quiescence {
		metrics.WatchEventsTotal.WithLabelValues(c.collection, "dropped").Inc()
		c.saveCursor(ctx, cur)
		return
	}

	typeName := doc.TypeName(c.collection)
	prof, err := c.profiles.EnsureProfile(ctx, c.collection, typeName)
	if err != nil {
		metrics.WatchEventsTotal.WithLabelValues(c.collection, "failed").Inc()
		c.logger.Warn("Dropping event for unresolvable type",
			zap.String("type", typeName),
			zap.String("document_id", doc.IDString()),
			zap.Error(err),
		)
		c.saveCursor(ctx, cur)
		return
	}

	task := Task{
		UpdateTask: domain.UpdateTask{
			DocumentID: doc.IDString(),
			Collection: c.collection,
			TypeName:   typeName,
			EnqueuedAt: c.now(),
			Reason:     domain.ReasonChangeEvent,
		},
		Document: doc,
		Profile:  prof,
		Cursor:   cur,
	}
	if err := c.pool.Submit(ctx, task); err != nil {
		metrics.WatchEventsTotal.WithLabelValues(c.collection, "failed").Inc()
		return
	}
	metrics.WatchEventsTotal.WithLabelValues(c.collection, "enqueued").Inc()
}

// reconnectWait counts the attempt and sleeps the fixed delay.
// Returns false when the context ended during the wait.
func (c *Coordinator) reconnectWait(ctx context.Context) bool {
	c.state.Store(int32(StateReconnecting))
	c.reconnects.Add(1)
	metrics.WatchReconnectsTotal.WithLabelValues(c.collection).Inc()
	c.logger.Info("Reconnecting change subscription",
		zap.Duration("delay", c.cfg.ReconnectDelay),
		zap.Int64("attempt", c.reconnects.Load()),
	)

	select {
	case <-ctx.Done():
		c.state.Store(int32(StateStopped))
		return false
	case <-time.After(c.cfg.ReconnectDelay):
		return true
	}
}

func (c *Coordinator) saveCursor(ctx context.Context, cur domain.WatchCursor) {
	if err := c.cursors.Save(ctx, cur); err != nil {
		c.logger.Warn("Failed to persist watch cursor", zap.Error(err))
	}
}

// closeStream releases the subscription with its own short deadline; the
// run context may already be canceled.
func (c *Coordinator) closeStream(stream db.ChangeStream) {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stream.Close(closeCtx); err != nil {
		c.logger.Debug("Failed to close change stream", zap.Error(err))
	}
}
