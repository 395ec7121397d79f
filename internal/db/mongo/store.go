// Package mongo implements db.DocumentStore over MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
)

// Compile-time check: Store implements db.DocumentStore.
var _ db.DocumentStore = (*Store)(nil)

// Config holds connection parameters for a MongoDB store.
type Config struct {
	URI      string
	Database string
}

// Store implements db.DocumentStore via the official driver.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewStore connects to MongoDB and verifies connectivity.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{client: client, database: client.Database(cfg.Database)}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// ListCollections returns non-system collection names.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, &db.Error{Op: db.OpListCollections, Err: err}
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasPrefix(n, "system.") {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Distinct returns the distinct values of a field across a collection.
func (s *Store) Distinct(ctx context.Context, collection, field string) ([]any, error) {
	values, err := s.database.Collection(collection).Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, &db.Error{Op: db.OpDistinct, Err: err}
	}
	return values, nil
}

// FindOne fetches one matching document, or db.ErrNotFound.
func (s *Store) FindOne(ctx context.Context, collection string, filter db.Filter) (document.Document, error) {
	var raw bson.M
	err := s.database.Collection(collection).FindOne(ctx, toBSON(filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpFindOne, Err: err}
	}
	return normalize(raw), nil
}

// Count counts matching documents.
func (s *Store) Count(ctx context.Context, collection string, filter db.Filter) (int64, error) {
	n, err := s.database.Collection(collection).CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// Find returns one page of matching documents.
func (s *Store) Find(ctx context.Context, collection string, filter db.Filter, skip, limit int64) ([]document.Document, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit)
	cur, err := s.database.Collection(collection).Find(ctx, toBSON(filter), opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []document.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, &db.Error{Op: db.OpFind, Err: err}
		}
		docs = append(docs, normalize(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	return docs, nil
}

// UpdateOne applies a single $set of the given fields to one document.
// The whole field-set is written in one update, so it is atomic per document.
func (s *Store) UpdateOne(ctx context.Context, collection string, id any, fields map[string]any) error {
	_, err := s.database.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": toBSON(fields)},
	)
	if err != nil {
		return &db.Error{Op: db.OpUpdateOne, Err: err}
	}
	return nil
}

func toBSON(m map[string]any) bson.M {
	if m == nil {
		return bson.M{}
	}
	return bson.M(m)
}

// normalize converts driver decode artifacts into the plain value tree the
// domain layer traverses. Opaque scalars (ObjectID) pass through untouched.
func normalize(raw bson.M) document.Document {
	out := make(document.Document, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = normalizeValue(e)
		}
		return a
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
