package backfill

import (
	"context"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain/batch"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
	"github.com/kailas-cloud/vecsync/internal/usecase/orchestrator"
)

// DocumentPager pages through matching documents.
type DocumentPager interface {
	Count(ctx context.Context, collection string, filter db.Filter) (int64, error)
	Find(ctx context.Context, collection string, filter db.Filter, skip, limit int64) ([]document.Document, error)
}

// Embedder drives embedding generation for one page of documents.
type Embedder interface {
	ProcessBatch(ctx context.Context, collection string, docs []document.Document, prof profile.Profile, opts orchestrator.Options) batch.Result
}
