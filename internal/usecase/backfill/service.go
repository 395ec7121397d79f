// Package backfill drives full-corpus embedding generation, page by page.
// Re-running is safe: fresh documents are skipped by the orchestrator, which
// makes an interrupted backfill naturally resumable.
package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain/batch"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
	"github.com/kailas-cloud/vecsync/internal/metrics"
	"github.com/kailas-cloud/vecsync/internal/usecase/orchestrator"
)

// Options control one backfill run.
type Options struct {
	Tenant   string // optional tenant equality filter, applied in the query
	Force    bool
	DryRun   bool
	PageSize int64
}

// Service is the backfill processor.
type Service struct {
	store  DocumentPager
	embed  Embedder
	logger *zap.Logger
}

// New creates a backfill service.
func New(store DocumentPager, embed Embedder, logger *zap.Logger) *Service {
	return &Service{store: store, embed: embed, logger: logger}
}

// Run backfills one document type, reporting cumulative progress.
func (s *Service) Run(ctx context.Context, prof profile.Profile, opts Options) (batch.Result, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	collection := prof.SourceCollection()
	filter := db.Filter{}
	if prof.Discriminated() {
		filter[document.TypeField] = prof.TypeName()
	}
	if opts.Tenant != "" {
		filter["tenantId"] = opts.Tenant
	}

	total, err := s.store.Count(ctx, collection, filter)
	if err != nil {
		return batch.Result{}, fmt.Errorf("count %s: %w", prof.TypeName(), err)
	}

	var result batch.Result
	for skip := int64(0); ; skip += pageSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := s.store.Find(ctx, collection, filter, skip, pageSize)
		if err != nil {
			return result, fmt.Errorf("page %s at %d: %w", prof.TypeName(), skip, err)
		}
		if len(page) == 0 {
			break
		}

		pageResult := s.embed.ProcessBatch(ctx, collection, page, prof, orchestrator.Options{
			Force:  opts.Force,
			DryRun: opts.DryRun,
		})
		result.Merge(pageResult)
		s.observe(prof.TypeName(), pageResult)

		s.logger.Info("Backfill progress",
			zap.String("type", prof.TypeName()),
			zap.Int("processed", result.Processed),
			zap.Int64("total", total),
			zap.Int("updated", result.Updated),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", result.Errors),
		)

		if int64(len(page)) < pageSize {
			break
		}
	}

	return result, nil
}

// RunAll backfills every profile in order, continuing past per-type failures.
func (s *Service) RunAll(ctx context.Context, profiles []profile.Profile, opts Options) batch.Result {
	var result batch.Result
	for _, prof := range profiles {
		r, err := s.Run(ctx, prof, opts)
		result.Merge(r)
		if err != nil {
			s.logger.Error("Backfill failed",
				zap.String("type", prof.TypeName()), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return result
}

func (s *Service) observe(typeName string, r batch.Result) {
	metrics.BackfillDocumentsTotal.WithLabelValues(typeName, "updated").Add(float64(r.Updated))
	metrics.BackfillDocumentsTotal.WithLabelValues(typeName, "skipped").Add(float64(r.Skipped))
	metrics.BackfillDocumentsTotal.WithLabelValues(typeName, "error").Add(float64(r.Errors))
}
