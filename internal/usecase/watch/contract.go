package watch

import (
	"context"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
)

// Watcher opens change subscriptions.
type Watcher interface {
	Watch(ctx context.Context, collection string, resumeToken []byte) (db.ChangeStream, error)
}

// CursorRepo loads and persists change feed positions.
type CursorRepo interface {
	Load(ctx context.Context, collection string) (domain.WatchCursor, error)
	Save(ctx context.Context, cur domain.WatchCursor) error
}

// ProfileResolver returns the profile for a type, discovering it on demand.
type ProfileResolver interface {
	EnsureProfile(ctx context.Context, collection, typeName string) (profile.Profile, error)
}

// Submitter hands tasks to the shared worker pool.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}
