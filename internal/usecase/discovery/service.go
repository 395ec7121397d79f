// Package discovery enumerates document types per collection and derives one
// structural profile per type. It owns the in-memory profile cache: the cache
// is refreshed explicitly and handed by reference to consumers, never global.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
)

// Service discovers document types and caches their profiles.
type Service struct {
	store       StoreReader
	collections []string // explicit list; empty = listCollections
	logger      *zap.Logger

	mu       sync.RWMutex
	profiles map[string]profile.Profile // by type name
}

// New creates a discovery service.
func New(store StoreReader, collections []string, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		collections: collections,
		logger:      logger,
		profiles:    make(map[string]profile.Profile),
	}
}

// Refresh re-derives all profiles. Safe to call at any time: discovery never
// mutates data, and a failed collection leaves its previous profiles intact.
func (s *Service) Refresh(ctx context.Context) error {
	collections, err := s.targetCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	fresh := make(map[string]profile.Profile)
	for _, coll := range collections {
		profs, err := s.discoverCollection(ctx, coll)
		if err != nil {
			s.logger.Warn("Collection discovery failed",
				zap.String("collection", coll), zap.Error(err))
			continue
		}
		for _, p := range profs {
			fresh[p.TypeName()] = p
		}
	}

	s.mu.Lock()
	for name, p := range fresh {
		s.profiles[name] = p
	}
	s.mu.Unlock()

	s.logger.Info("Discovery refreshed",
		zap.Int("collections", len(collections)),
		zap.Int("profiles", len(fresh)),
	)
	return nil
}

// Profile returns the cached profile for a type.
func (s *Service) Profile(typeName string) (profile.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[typeName]
	return p, ok
}

// Profiles returns all cached profiles sorted by type name.
func (s *Service) Profiles() []profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName() < out[j].TypeName() })
	return out
}

// EnsureProfile returns the profile for a type, running targeted discovery
// when the type is unknown (e.g. first seen in a change event).
func (s *Service) EnsureProfile(ctx context.Context, collection, typeName string) (profile.Profile, error) {
	if p, ok := s.Profile(typeName); ok {
		return p, nil
	}

	p, err := s.discoverType(ctx, collection, typeName, typeName != collection)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("discover type %s: %w", typeName, err)
	}

	s.mu.Lock()
	s.profiles[typeName] = p
	s.mu.Unlock()

	s.logger.Info("Discovered new document type",
		zap.String("collection", collection),
		zap.String("type", typeName),
		zap.Int64("sample_count", p.SampleCount()),
	)
	return p, nil
}

func (s *Service) targetCollections(ctx context.Context) ([]string, error) {
	if len(s.collections) > 0 {
		return s.collections, nil
	}
	return s.store.ListCollections(ctx)
}

// discoverCollection derives profiles for every type in one collection.
// Collections whose documents carry the discriminator field yield one profile
// per distinct value; others yield a single implicit type named after the
// collection. Empty collections and empty types yield nothing, silently.
func (s *Service) discoverCollection(ctx context.Context, collection string) ([]profile.Profile, error) {
	values, err := s.store.Distinct(ctx, collection, document.TypeField)
	if err != nil {
		return nil, fmt.Errorf("distinct types: %w", err)
	}

	typeNames := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && name != "" {
			typeNames = append(typeNames, name)
		}
	}
	sort.Strings(typeNames)

	if len(typeNames) == 0 {
		p, err := s.discoverType(ctx, collection, collection, false)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []profile.Profile{p}, nil
	}

	var profiles []profile.Profile
	for _, typeName := range typeNames {
		p, err := s.discoverType(ctx, collection, typeName, true)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// discoverType profiles one type from a single representative document.
func (s *Service) discoverType(ctx context.Context, collection, typeName string, discriminated bool) (profile.Profile, error) {
	filter := db.Filter{}
	if discriminated {
		filter[document.TypeField] = typeName
	}

	sample, err := s.store.FindOne(ctx, collection, filter)
	if errors.Is(err, db.ErrNotFound) {
		return profile.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("sample document: %w", err)
	}

	count, err := s.store.Count(ctx, collection, filter)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("count documents: %w", err)
	}

	return profile.Derive(typeName, collection, discriminated, sample).WithSampleCount(count), nil
}
