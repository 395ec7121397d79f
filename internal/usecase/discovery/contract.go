package discovery

import (
	"context"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
)

// StoreReader is the read-only store surface discovery needs.
type StoreReader interface {
	ListCollections(ctx context.Context) ([]string, error)
	Distinct(ctx context.Context, collection, field string) ([]any, error)
	FindOne(ctx context.Context, collection string, filter db.Filter) (document.Document, error)
	Count(ctx context.Context, collection string, filter db.Filter) (int64, error)
}
