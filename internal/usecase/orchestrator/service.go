// Package orchestrator turns documents into stored embeddings: summary,
// provider call with retry, atomic write-back. Per-document failures never
// abort a batch; every document lands in exactly one result counter.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/batch"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
	"github.com/kailas-cloud/vecsync/internal/domain/summary"
)

// Options control one batch run.
type Options struct {
	Force  bool // re-embed fresh documents too
	DryRun bool // count work without calling the provider or writing
}

// Config holds orchestration settings.
type Config struct {
	ModelID         string
	FreshnessWindow time.Duration // skip records younger than this
	CallInterval    time.Duration // per-worker delay between provider calls
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	Workers         int
}

// Service is the embedding orchestrator.
type Service struct {
	writer DocumentWriter
	embed  domain.Embedder
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an orchestrator.
func New(writer DocumentWriter, embed domain.Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Service{
		writer: writer,
		embed:  embed,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source (test use).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessBatch embeds a batch of documents of one type. Documents fan out
// across the worker pool; each worker paces its own provider calls, so
// throughput scales with worker count. The returned result conserves counts:
// Processed == Updated + Skipped + Errors.
func (s *Service) ProcessBatch(
	ctx context.Context,
	collection string,
	docs []document.Document,
	prof profile.Profile,
	opts Options,
) batch.Result {
	var (
		mu     sync.Mutex
		result batch.Result
	)
	if len(docs) == 0 {
		return result
	}

	workers := s.cfg.Workers
	if workers > len(docs) {
		workers = len(docs)
	}

	queue := make(chan document.Document)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			local := s.runWorker(ctx, collection, queue, prof, opts)
			mu.Lock()
			result.Merge(local)
			mu.Unlock()
		}()
	}

feed:
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			break feed
		case queue <- doc:
		}
	}
	close(queue)
	wg.Wait()

	return result
}

// Worker embeds documents one at a time (live-update path). It owns a
// persistent pacing limiter, so provider calls across successive documents
// keep the configured inter-call delay, same as batch workers.
type Worker struct {
	svc     *Service
	limiter *rate.Limiter
}

// NewWorker creates a live-update worker with its own pacing limiter.
// Create one per consumer goroutine; sharing a Worker shares its pacing.
func (s *Service) NewWorker() *Worker {
	return &Worker{
		svc:     s,
		limiter: rate.NewLimiter(rate.Every(s.cfg.CallInterval), 1),
	}
}

// Process embeds a single document.
func (w *Worker) Process(
	ctx context.Context,
	collection string,
	doc document.Document,
	prof profile.Profile,
	opts Options,
) batch.Result {
	var result batch.Result
	w.svc.processDocument(ctx, collection, doc, prof, opts, w.limiter, &result)
	return result
}

// runWorker drains the queue with its own pacing limiter. The inter-call
// delay is per worker, not global.
func (s *Service) runWorker(
	ctx context.Context,
	collection string,
	queue <-chan document.Document,
	prof profile.Profile,
	opts Options,
) batch.Result {
	var local batch.Result
	limiter := rate.NewLimiter(rate.Every(s.cfg.CallInterval), 1)
	for doc := range queue {
		s.processDocument(ctx, collection, doc, prof, opts, limiter, &local)
	}
	return local
}

func (s *Service) processDocument(
	ctx context.Context,
	collection string,
	doc document.Document,
	prof profile.Profile,
	opts Options,
	limiter *rate.Limiter,
	result *batch.Result,
) {
	now := s.now()

	if !opts.Force {
		if rec, ok := doc.Record(); ok && rec.FreshAt(now, s.cfg.FreshnessWindow) {
			result.Skip()
			return
		}
	}

	sum := summary.Generate(doc, prof)
	if !sum.Embeddable() {
		result.Skip()
		return
	}

	if opts.DryRun {
		result.Update()
		return
	}

	if s.cfg.CallInterval > 0 {
		if err := limiter.Wait(ctx); err != nil {
			result.Fail()
			return
		}
	}

	embedding, err := withRetry(ctx, s.cfg.MaxAttempts, s.cfg.BaseBackoff, s.cfg.MaxBackoff,
		func() (domain.EmbeddingResult, error) {
			return s.embed.Embed(ctx, sum.Text)
		})
	if err != nil {
		s.logger.Warn("Embedding failed",
			zap.String("collection", collection),
			zap.String("document_id", sum.DocumentID),
			zap.String("type", prof.TypeName()),
			zap.Error(err),
		)
		result.Fail()
		return
	}

	rec := domain.EmbeddingRecord{
		Vector:            embedding.Embedding,
		SemanticText:      sum.Text,
		SearchableContent: sum.Keywords,
		ModelID:           s.cfg.ModelID,
		GeneratedAt:       s.now(),
	}
	if err := s.writer.UpdateOne(ctx, collection, doc.ID(), rec.Fields()); err != nil {
		s.logger.Warn("Embedding write-back failed",
			zap.String("collection", collection),
			zap.String("document_id", sum.DocumentID),
			zap.Error(err),
		)
		result.Fail()
		return
	}

	result.Update()
}
