// Package cursor persists per-collection change feed positions so watchers
// resume after restart without reprocessing committed events. Persistence is
// best-effort: a lost cursor only means re-subscribing from "now".
package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain"
)

const keyPrefix = "vecsync:cursor:"

// kv is the consumer interface for cursor persistence (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store persists watch cursors in a key-value store.
type Store struct {
	kv kv
}

// New creates a cursor store. A nil kv disables persistence: watchers then
// always subscribe from "now".
func New(kv kv) *Store {
	return &Store{kv: kv}
}

// Load returns the persisted cursor for a collection. A collection watched
// for the first time has no cursor; its ResumeToken is nil.
func (s *Store) Load(ctx context.Context, collection string) (domain.WatchCursor, error) {
	if s.kv == nil {
		return domain.WatchCursor{Collection: collection}, nil
	}
	data, err := s.kv.Get(ctx, keyPrefix+collection)
	if errors.Is(err, db.ErrKeyNotFound) {
		return domain.WatchCursor{Collection: collection}, nil
	}
	if err != nil {
		return domain.WatchCursor{}, fmt.Errorf("load cursor %s: %w", collection, err)
	}
	return domain.WatchCursor{Collection: collection, ResumeToken: data}, nil
}

// Save persists a cursor position.
func (s *Store) Save(ctx context.Context, cur domain.WatchCursor) error {
	if s.kv == nil || len(cur.ResumeToken) == 0 {
		return nil
	}
	if err := s.kv.Set(ctx, keyPrefix+cur.Collection, cur.ResumeToken); err != nil {
		return fmt.Errorf("save cursor %s: %w", cur.Collection, err)
	}
	return nil
}
