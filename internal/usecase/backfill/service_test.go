package backfill

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsync/internal/db"
	"github.com/kailas-cloud/vecsync/internal/domain/batch"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
	"github.com/kailas-cloud/vecsync/internal/usecase/orchestrator"
)

type fakePager struct {
	docs    []document.Document
	filters []db.Filter
	findErr error
}

func (f *fakePager) Count(_ context.Context, _ string, _ db.Filter) (int64, error) {
	return int64(len(f.docs)), nil
}

func (f *fakePager) Find(_ context.Context, _ string, filter db.Filter, skip, limit int64) ([]document.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.filters = append(f.filters, filter)
	if skip >= int64(len(f.docs)) {
		return nil, nil
	}
	end := skip + limit
	if end > int64(len(f.docs)) {
		end = int64(len(f.docs))
	}
	return f.docs[skip:end], nil
}

type recordingEmbedder struct {
	batches [][]document.Document
	fail    bool
}

func (r *recordingEmbedder) ProcessBatch(
	_ context.Context, _ string, docs []document.Document, _ profile.Profile, _ orchestrator.Options,
) batch.Result {
	r.batches = append(r.batches, docs)
	var result batch.Result
	for range docs {
		if r.fail {
			result.Fail()
		} else {
			result.Update()
		}
	}
	return result
}

func makeDocs(n int) []document.Document {
	docs := make([]document.Document, n)
	for i := range docs {
		docs[i] = document.Document{"_id": "d" + strconv.Itoa(i)}
	}
	return docs
}

func invoiceProfile() profile.Profile {
	return profile.Reconstruct("paintInvoice", "inventory", true,
		nil, []string{"invoiceNumber"}, nil, nil, nil, nil, 7)
}

func TestRunPagesThroughAllDocuments(t *testing.T) {
	pager := &fakePager{docs: makeDocs(7)}
	embed := &recordingEmbedder{}
	svc := New(pager, embed, zap.NewNop())

	result, err := svc.Run(context.Background(), invoiceProfile(), Options{PageSize: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if want := (batch.Result{Processed: 7, Updated: 7}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if sizes := batchSizes(embed.batches); !reflect.DeepEqual(sizes, []int{3, 3, 1}) {
		t.Errorf("page sizes = %v, want [3 3 1]", sizes)
	}
}

func TestRunStopsOnExactPageBoundary(t *testing.T) {
	pager := &fakePager{docs: makeDocs(6)}
	embed := &recordingEmbedder{}
	svc := New(pager, embed, zap.NewNop())

	result, err := svc.Run(context.Background(), invoiceProfile(), Options{PageSize: 3})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 6 {
		t.Errorf("processed = %d, want 6", result.Processed)
	}
	if sizes := batchSizes(embed.batches); !reflect.DeepEqual(sizes, []int{3, 3}) {
		t.Errorf("page sizes = %v, want [3 3]", sizes)
	}
}

func TestRunFilters(t *testing.T) {
	pager := &fakePager{docs: makeDocs(1)}
	svc := New(pager, &recordingEmbedder{}, zap.NewNop())

	if _, err := svc.Run(context.Background(), invoiceProfile(), Options{Tenant: "t-9"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := db.Filter{document.TypeField: "paintInvoice", "tenantId": "t-9"}
	if !reflect.DeepEqual(pager.filters[0], want) {
		t.Errorf("filter = %v, want %v", pager.filters[0], want)
	}
}

func TestRunImplicitTypeOmitsDiscriminator(t *testing.T) {
	pager := &fakePager{docs: makeDocs(1)}
	svc := New(pager, &recordingEmbedder{}, zap.NewNop())
	prof := profile.Reconstruct("notes", "notes", false, nil, nil, nil, nil, nil, nil, 1)

	if _, err := svc.Run(context.Background(), prof, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(pager.filters[0], db.Filter{}) {
		t.Errorf("filter = %v, want empty", pager.filters[0])
	}
}

func TestRunPropagatesFindErrors(t *testing.T) {
	pager := &fakePager{docs: makeDocs(3), findErr: errors.New("cursor lost")}
	svc := New(pager, &recordingEmbedder{}, zap.NewNop())

	if _, err := svc.Run(context.Background(), invoiceProfile(), Options{}); err == nil {
		t.Error("expected a find error")
	}
}

func TestRunAllMergesAcrossTypes(t *testing.T) {
	pager := &fakePager{docs: makeDocs(2)}
	embed := &recordingEmbedder{}
	svc := New(pager, embed, zap.NewNop())

	profiles := []profile.Profile{
		invoiceProfile(),
		profile.Reconstruct("paintOrder", "inventory", true, nil, nil, nil, nil, nil, nil, 2),
	}
	result := svc.RunAll(context.Background(), profiles, Options{})

	if want := (batch.Result{Processed: 4, Updated: 4}); result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if !result.Conserved() {
		t.Errorf("counters not conserved: %+v", result)
	}
}

func batchSizes(batches [][]document.Document) []int {
	sizes := make([]int, len(batches))
	for i, b := range batches {
		sizes[i] = len(b)
	}
	return sizes
}
