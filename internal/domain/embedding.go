package domain

import (
	"context"
	"time"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// RecordField is the document field the embedding record is stored under.
// The whole subtree is replaced in one update so readers never observe a
// half-written record.
const RecordField = "_embedding"

// EmbeddingRecord is the derived embedding state stored on a source document.
type EmbeddingRecord struct {
	Vector            []float32
	SemanticText      string
	SearchableContent string
	ModelID           string
	GeneratedAt       time.Time
}

// FreshAt reports whether the record was generated within the window ending at now.
func (r EmbeddingRecord) FreshAt(now time.Time, window time.Duration) bool {
	if r.GeneratedAt.IsZero() {
		return false
	}
	return now.Sub(r.GeneratedAt) < window
}

// Fields returns the record as a single field-set for an atomic update.
func (r EmbeddingRecord) Fields() map[string]any {
	return map[string]any{
		RecordField: map[string]any{
			"vector":            r.Vector,
			"semanticText":      r.SemanticText,
			"searchableContent": r.SearchableContent,
			"modelId":           r.ModelID,
			"generatedAt":       r.GeneratedAt,
		},
	}
}
