package orchestrator

import (
	"context"
)

// DocumentWriter writes the embedding field-set back onto a source document.
// The write must be a single atomic update per document.
type DocumentWriter interface {
	UpdateOne(ctx context.Context, collection string, id any, fields map[string]any) error
}
