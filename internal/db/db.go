// Package db defines the storage contracts the pipeline depends on.
// Consumers use the narrow sub-interfaces (ISP); the facades exist for the
// composition root.
package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain/document"
)

// Filter is an equality filter applied by the store, not in memory.
type Filter map[string]any

// DocumentStore is the generic document store facade: query, update, watch.
//
//nolint:interfacebloat // facade by design -- consumers use narrow subsets
type DocumentStore interface {
	ListCollections(ctx context.Context) ([]string, error)
	Distinct(ctx context.Context, collection, field string) ([]any, error)
	FindOne(ctx context.Context, collection string, filter Filter) (document.Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	Find(ctx context.Context, collection string, filter Filter, skip, limit int64) ([]document.Document, error)
	UpdateOne(ctx context.Context, collection string, id any, fields map[string]any) error
	Watch(ctx context.Context, collection string, resumeToken []byte) (ChangeStream, error)
	EnsureVectorIndex(ctx context.Context, def VectorIndexDefinition) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Event operation types delivered by a change stream.
const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
)

// Event is one change feed entry carrying a full document snapshot.
type Event struct {
	Collection  string
	Operation   string
	DocumentID  any
	Document    document.Document
	ResumeToken []byte
}

// ChangeStream is an open change subscription. Next blocks until an event
// arrives, the context is canceled, or the subscription fails.
type ChangeStream interface {
	Next(ctx context.Context) (Event, error)
	Close(ctx context.Context) error
}

// VectorIndexDefinition is the backend-level shape of a vector index.
type VectorIndexDefinition struct {
	Name        string
	Collection  string
	VectorPath  string
	Dimensions  int
	Similarity  string
	FilterPaths []string
}

// KVStore provides simple key-value operations (cache, cursors).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
