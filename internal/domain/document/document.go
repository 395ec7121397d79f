// Package document models schema-less store documents as a generic value tree.
// Values are what the store driver decodes: nested map[string]any, []any,
// strings, numbers, time.Time, and opaque driver scalars (object IDs).
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain"
)

// Document is one schema-less document.
type Document map[string]any

// TypeField is the optional discriminator field grouping documents into types.
const TypeField = "type"

// ID returns the raw document identifier, or nil if absent.
func (d Document) ID() any {
	return d["_id"]
}

// IDString returns the identifier in a printable form for logs and task keys.
func (d Document) IDString() string {
	id := d.ID()
	if id == nil {
		return ""
	}
	if s, ok := id.(string); ok {
		return s
	}
	if h, ok := id.(interface{ Hex() string }); ok {
		return h.Hex()
	}
	return fmt.Sprintf("%v", id)
}

// TypeName returns the discriminator value, or fallback when the document
// carries none (implicit single-type collections).
func (d Document) TypeName(fallback string) string {
	if s, ok := d[TypeField].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Lookup resolves a dot-notation path against the document. Paths never
// traverse array elements; an array-typed intermediate terminates the walk.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Leaf returns the last segment of a dot-notation path.
func Leaf(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Record extracts the stored embedding record, if any.
func (d Document) Record() (domain.EmbeddingRecord, bool) {
	raw, ok := d[domain.RecordField].(map[string]any)
	if !ok {
		return domain.EmbeddingRecord{}, false
	}

	var rec domain.EmbeddingRecord
	if v, ok := raw["semanticText"].(string); ok {
		rec.SemanticText = v
	}
	if v, ok := raw["searchableContent"].(string); ok {
		rec.SearchableContent = v
	}
	if v, ok := raw["modelId"].(string); ok {
		rec.ModelID = v
	}
	if v, ok := raw["generatedAt"].(time.Time); ok {
		rec.GeneratedAt = v
	}
	rec.Vector = toVector(raw["vector"])
	return rec, true
}

func toVector(v any) []float32 {
	switch vec := v.(type) {
	case []float32:
		return vec
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vec))
		for _, e := range vec {
			switch f := e.(type) {
			case float64:
				out = append(out, float32(f))
			case float32:
				out = append(out, f)
			case int32:
				out = append(out, float32(f))
			case int64:
				out = append(out, float32(f))
			}
		}
		return out
	default:
		return nil
	}
}
