// Package index derives vector index definitions from type profiles and
// ensures they exist. Creation is idempotent: "already exists" is success,
// and a backend without vector search is an operator diagnostic, not a crash.
package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
)

// Status is the outcome of an ensure operation.
type Status string

// Ensure outcomes.
const (
	StatusCreated       Status = "created"
	StatusAlreadyExists Status = "already_exists"
	StatusUnsupported   Status = "unsupported"
)

// IndexEnsurer creates vector indexes in the backend.
type IndexEnsurer interface {
	EnsureVectorIndex(ctx context.Context, def db.VectorIndexDefinition) error
}

// Service is the vector index manager.
type Service struct {
	store      IndexEnsurer
	dimensions int
	similarity string
	logger     *zap.Logger
}

// New creates an index manager.
func New(store IndexEnsurer, dimensions int, similarity string, logger *zap.Logger) *Service {
	return &Service{store: store, dimensions: dimensions, similarity: similarity, logger: logger}
}

// Descriptor derives the index definition for one document type. Filters
// always include tenant isolation, the type discriminator, the soft-delete
// marker, and every identifier field of the profile.
func (s *Service) Descriptor(prof profile.Profile) domain.IndexDescriptor {
	filters := []string{"tenantId", document.TypeField, "deleted"}
	filters = append(filters, prof.IdentifierFields()...)

	return domain.IndexDescriptor{
		Name:             fmt.Sprintf("%s_embedding_idx", prof.TypeName()),
		TargetCollection: prof.SourceCollection(),
		VectorPath:       domain.RecordField + ".vector",
		Dimensions:       s.dimensions,
		SimilarityMetric: s.similarity,
		FilterPaths:      filters,
	}
}

// Ensure creates the index described by the descriptor.
func (s *Service) Ensure(ctx context.Context, desc domain.IndexDescriptor) (Status, error) {
	err := s.store.EnsureVectorIndex(ctx, db.VectorIndexDefinition{
		Name:        desc.Name,
		Collection:  desc.TargetCollection,
		VectorPath:  desc.VectorPath,
		Dimensions:  desc.Dimensions,
		Similarity:  desc.SimilarityMetric,
		FilterPaths: desc.FilterPaths,
	})
	switch {
	case err == nil:
		s.logger.Info("Vector index created",
			zap.String("index", desc.Name),
			zap.String("collection", desc.TargetCollection),
		)
		return StatusCreated, nil
	case errors.Is(err, db.ErrIndexExists):
		return StatusAlreadyExists, nil
	case errors.Is(err, db.ErrVectorIndexUnsupported):
		// Expected on deployments without Atlas Search; the pipeline keeps
		// running, only vector queries need the index.
		s.logger.Warn("Backend does not support vector search indexes; "+
			"create the index manually or enable search on the deployment",
			zap.String("index", desc.Name),
			zap.String("collection", desc.TargetCollection),
		)
		return StatusUnsupported, nil
	default:
		return "", fmt.Errorf("ensure index %s: %w", desc.Name, err)
	}
}

// EnsureAll ensures one index per profile, continuing past per-index failures.
func (s *Service) EnsureAll(ctx context.Context, profiles []profile.Profile) error {
	var lastErr error
	for _, prof := range profiles {
		status, err := s.Ensure(ctx, s.Descriptor(prof))
		if err != nil {
			s.logger.Error("Index creation failed",
				zap.String("type", prof.TypeName()), zap.Error(err))
			lastErr = err
			continue
		}
		s.logger.Info("Vector index ensured",
			zap.String("type", prof.TypeName()),
			zap.String("status", string(status)),
		)
	}
	return lastErr
}
