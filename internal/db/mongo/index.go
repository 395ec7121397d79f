package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/vecsync/internal/db"
)

// EnsureVectorIndex creates an Atlas vectorSearch index. Backend responses are
// mapped to sentinels: an existing index of the same name yields
// db.ErrIndexExists, a deployment without search support yields
// db.ErrVectorIndexUnsupported. Creation is attempted unconditionally.
func (s *Store) EnsureVectorIndex(ctx context.Context, def db.VectorIndexDefinition) error {
	fields := bson.A{
		bson.M{
			"type":          "vector",
			"path":          def.VectorPath,
			"numDimensions": def.Dimensions,
			"similarity":    def.Similarity,
		},
	}
	for _, path := range def.FilterPaths {
		fields = append(fields, bson.M{"type": "filter", "path": path})
	}

	model := mongo.SearchIndexModel{
		Definition: bson.M{"fields": fields},
		Options:    options.SearchIndexes().SetName(def.Name).SetType("vectorSearch"),
	}

	_, err := s.database.Collection(def.Collection).SearchIndexes().CreateOne(ctx, model)
	if err == nil {
		return nil
	}
	if isIndexExists(err) {
		return db.ErrIndexExists
	}
	if isSearchUnsupported(err) {
		return db.ErrVectorIndexUnsupported
	}
	return &db.Error{Op: db.OpCreateIndex, Err: err}
}

func isIndexExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "IndexAlreadyExists" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate index")
}

// isSearchUnsupported detects deployments without Atlas Search
// (local mongod, old server versions): createSearchIndexes is unknown there.
func isSearchUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 59 { // CommandNotFound
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such command") ||
		strings.Contains(msg, "unrecognized command") ||
		strings.Contains(msg, "searchnotenabled") ||
		strings.Contains(msg, "search index commands are only supported")
}
