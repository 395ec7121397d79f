package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/batch"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
)

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	err   func(text string) error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		if err := s.err(text); err != nil {
			return domain.EmbeddingResult{}, err
		}
	}
	return domain.EmbeddingResult{Embedding: []float32{0.5, 0.5}, TotalTokens: 7}, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubWriter struct {
	mu      sync.Mutex
	updates map[any]map[string]any
	err     error
}

func newStubWriter() *stubWriter {
	return &stubWriter{updates: make(map[any]map[string]any)}
}

func (w *stubWriter) UpdateOne(_ context.Context, _ string, id any, fields map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.updates[id] = fields
	return nil
}

func (w *stubWriter) updateCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.updates)
}

func nameProfile() profile.Profile {
	return profile.Reconstruct("note", "notes", false,
		[]string{"name"}, nil, nil, nil, nil, nil, 1)
}

func newTestService(w DocumentWriter, e domain.Embedder, cfg Config) *Service {
	if cfg.ModelID == "" {
		cfg.ModelID = "text-embedding-3-small"
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 2 * time.Millisecond
	}
	return New(w, e, cfg, zap.NewNop())
}

func TestProcessBatchUpdatesAll(t *testing.T) {
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{Workers: 2})

	docs := []document.Document{
		{"_id": "d1", "name": "alpha document one"},
		{"_id": "d2", "name": "bravo document two"},
		{"_id": "d3", "name": "charlie document three"},
	}

	result := svc.ProcessBatch(context.Background(), "notes", docs, nameProfile(), Options{})

	want := batch.Result{Processed: 3, Updated: 3}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if writer.updateCount() != 3 {
		t.Errorf("writer received %d updates, want 3", writer.updateCount())
	}

	fields := writer.updates["d1"]
	rec, ok := fields[domain.RecordField].(map[string]any)
	if !ok {
		t.Fatalf("update missing %s subdocument: %v", domain.RecordField, fields)
	}
	if rec["semanticText"] != "Document type: note. name: alpha document one" {
		t.Errorf("semanticText = %v", rec["semanticText"])
	}
	if rec["modelId"] != "text-embedding-3-small" {
		t.Errorf("modelId = %v", rec["modelId"])
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	embed := &stubEmbedder{err: func(text string) error {
		if strings.Contains(text, "poison") {
			return domain.ErrProviderRejected
		}
		return nil
	}}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{Workers: 3})

	docs := []document.Document{
		{"_id": "d1", "name": "alpha document one"},
		{"_id": "d2", "name": "poison document two"},
		{"_id": "d3", "name": "charlie document three"},
		{"_id": "d4", "name": "delta document four"},
		{"_id": "d5", "name": "echo document five"},
	}

	result := svc.ProcessBatch(context.Background(), "notes", docs, nameProfile(), Options{})

	want := batch.Result{Processed: 5, Updated: 4, Errors: 1}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if !result.Conserved() {
		t.Errorf("counters not conserved: %+v", result)
	}
}

func TestFreshDocumentSkippedWithoutProviderCall(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{FreshnessWindow: 7 * 24 * time.Hour}).
		WithClock(func() time.Time { return now })

	doc := document.Document{
		"_id":  "d1",
		"name": "alpha document one",
		domain.RecordField: map[string]any{
			"vector":       []any{float64(0.1)},
			"semanticText": "Document type: note. name: alpha document one",
			"generatedAt":  now.Add(-time.Hour),
		},
	}

	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{})

	if want := (batch.Result{Processed: 1, Skipped: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if embed.callCount() != 0 {
		t.Errorf("provider called %d times for a fresh document", embed.callCount())
	}
}

func TestStaleDocumentReembedded(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{FreshnessWindow: 7 * 24 * time.Hour}).
		WithClock(func() time.Time { return now })

	doc := document.Document{
		"_id":  "d1",
		"name": "alpha document one",
		domain.RecordField: map[string]any{
			"generatedAt": now.Add(-8 * 24 * time.Hour),
		},
	}

	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{})

	if want := (batch.Result{Processed: 1, Updated: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
}

func TestForceReembedsFreshDocument(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{FreshnessWindow: 7 * 24 * time.Hour}).
		WithClock(func() time.Time { return now })

	doc := document.Document{
		"_id":  "d1",
		"name": "alpha document one",
		domain.RecordField: map[string]any{
			"generatedAt": now.Add(-time.Hour),
		},
	}

	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{Force: true})

	if want := (batch.Result{Processed: 1, Updated: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if embed.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", embed.callCount())
	}
}

func TestDryRunTouchesNothing(t *testing.T) {
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{})

	doc := document.Document{"_id": "d1", "name": "alpha document one"}

	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{DryRun: true})

	if want := (batch.Result{Processed: 1, Updated: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if embed.callCount() != 0 {
		t.Errorf("provider called %d times in dry run", embed.callCount())
	}
	if writer.updateCount() != 0 {
		t.Errorf("writer received %d updates in dry run", writer.updateCount())
	}
}

func TestUnembeddableDocumentSkipped(t *testing.T) {
	embed := &stubEmbedder{}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{})

	emptyProfile := profile.Reconstruct("", "notes", false, nil, nil, nil, nil, nil, nil, 0)
	result := svc.NewWorker().Process(context.Background(), "notes", document.Document{"_id": "d1"}, emptyProfile, Options{})

	if want := (batch.Result{Processed: 1, Skipped: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if embed.callCount() != 0 {
		t.Errorf("provider called %d times for unembeddable document", embed.callCount())
	}
}

func TestTransientFailureRetriedWithinBatch(t *testing.T) {
	var mu sync.Mutex
	failures := 2
	embed := &stubEmbedder{err: func(string) error {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return domain.ErrRateLimited
		}
		return nil
	}}
	writer := newStubWriter()
	svc := newTestService(writer, embed, Config{MaxAttempts: 3})

	doc := document.Document{"_id": "d1", "name": "alpha document one"}
	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{})

	if want := (batch.Result{Processed: 1, Updated: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if embed.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", embed.callCount())
	}
}

func TestWriteBackFailureCounted(t *testing.T) {
	embed := &stubEmbedder{}
	writer := newStubWriter()
	writer.err = context.DeadlineExceeded
	svc := newTestService(writer, embed, Config{})

	doc := document.Document{"_id": "d1", "name": "alpha document one"}
	result := svc.NewWorker().Process(context.Background(), "notes", doc, nameProfile(), Options{})

	if want := (batch.Result{Processed: 1, Errors: 1}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
}

func TestWorkerPacesProviderCalls(t *testing.T) {
	embed := &stubEmbedder{}
	svc := newTestService(newStubWriter(), embed, Config{CallInterval: 50 * time.Millisecond})
	worker := svc.NewWorker()

	docs := []document.Document{
		{"_id": "d1", "name": "alpha document one"},
		{"_id": "d2", "name": "bravo document two"},
		{"_id": "d3", "name": "charlie document three"},
	}

	start := time.Now()
	for _, doc := range docs {
		worker.Process(context.Background(), "notes", doc, nameProfile(), Options{})
	}
	elapsed := time.Since(start)

	if embed.callCount() != 3 {
		t.Fatalf("provider called %d times, want 3", embed.callCount())
	}
	// Burst 1 means the first call is immediate and each later call waits
	// out the interval: three calls take at least two intervals.
	if elapsed < 100*time.Millisecond {
		t.Errorf("three paced calls took %v, want >= 100ms", elapsed)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	svc := newTestService(newStubWriter(), &stubEmbedder{}, Config{})

	result := svc.ProcessBatch(context.Background(), "notes", nil, nameProfile(), Options{})

	if result != (batch.Result{}) {
		t.Errorf("result = %+v, want zero", result)
	}
}
