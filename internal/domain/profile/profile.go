// Package profile derives structural profiles from example documents.
// Classification is a pure recursive function over the document value tree:
// the same document always yields the same profile.
package profile

import (
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain"
	"github.com/kailas-cloud/vecsync/internal/domain/document"
)

// deniedFields are system/audit/bookkeeping fields excluded from profiles.
// The embedding record subtree is denied to avoid embedding feedback loops.
var deniedFields = map[string]bool{
	"_id": true, "id": true, "__v": true,
	"tenantId": true, "userId": true,
	"createdBy": true, "updatedBy": true,
	"createdAt": true, "updatedAt": true,
	"deleted": true, "deletedAt": true,
	document.TypeField: true,
	domain.RecordField: true,
}

// Profile is one document type's structural profile (immutable value object).
// It is a best-effort approximation derived from a single representative
// document, never an authoritative schema.
type Profile struct {
	typeName         string
	sourceCollection string
	discriminated    bool
	textFields       []string
	identifierFields []string
	numericFields    []string
	dateFields       []string
	arrayFields      []string
	objectFields     []string
	sampleCount      int64
}

// Derive classifies every field path of an example document. discriminated
// marks types grouped by the discriminator field rather than whole collections.
func Derive(typeName, sourceCollection string, discriminated bool, doc document.Document) Profile {
	p := Profile{
		typeName:         typeName,
		sourceCollection: sourceCollection,
		discriminated:    discriminated,
	}
	p.classify("", map[string]any(doc))
	return p
}

// Reconstruct creates a Profile from stored parts (test and hydration use).
func Reconstruct(
	typeName, sourceCollection string, discriminated bool,
	text, identifier, numeric, date, array, object []string, sampleCount int64,
) Profile {
	return Profile{
		typeName: typeName, sourceCollection: sourceCollection, discriminated: discriminated,
		textFields: text, identifierFields: identifier, numericFields: numeric,
		dateFields: date, arrayFields: array, objectFields: object, sampleCount: sampleCount,
	}
}

// TypeName returns the document type name.
func (p Profile) TypeName() string { return p.typeName }

// SourceCollection returns the collection the type lives in.
func (p Profile) SourceCollection() string { return p.sourceCollection }

// Discriminated reports whether documents of this type carry the
// discriminator field (and type queries must filter on it).
func (p Profile) Discriminated() bool { return p.discriminated }

// TextFields returns text field paths in classification order.
func (p Profile) TextFields() []string { return p.textFields }

// IdentifierFields returns identifier field paths.
func (p Profile) IdentifierFields() []string { return p.identifierFields }

// NumericFields returns numeric field paths.
func (p Profile) NumericFields() []string { return p.numericFields }

// DateFields returns date field paths.
func (p Profile) DateFields() []string { return p.dateFields }

// ArrayFields returns array field paths.
func (p Profile) ArrayFields() []string { return p.arrayFields }

// ObjectFields returns nested object field paths.
func (p Profile) ObjectFields() []string { return p.objectFields }

// SampleCount returns the number of documents counted for this type.
func (p Profile) SampleCount() int64 { return p.sampleCount }

// WithSampleCount returns a copy with the sample count set.
func (p Profile) WithSampleCount(n int64) Profile {
	p.sampleCount = n
	return p
}

// classify walks one object level. Keys are visited in sorted order so the
// resulting field order (and everything derived from it) is deterministic.
func (p *Profile) classify(prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if deniedFields[key] {
			continue
		}
		value := obj[key]
		if value == nil {
			continue
		}

		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		switch v := value.(type) {
		case []any:
			p.arrayFields = append(p.arrayFields, path)
			// Inspect element 0 only; deeper elements are assumed homogeneous.
			if len(v) > 0 {
				if elem, ok := v[0].(map[string]any); ok {
					p.classify(path, elem)
				}
			}
		case map[string]any:
			p.objectFields = append(p.objectFields, path)
			p.classify(path, v)
		case string:
			p.classifyString(path, key, v)
		case time.Time:
			p.dateFields = append(p.dateFields, path)
		case float64, float32, int, int32, int64:
			p.numericFields = append(p.numericFields, path)
		default:
			// Booleans and opaque driver scalars carry no semantic text.
		}
	}
}

func (p *Profile) classifyString(path, name, value string) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "id") || strings.Contains(lower, "code"):
		p.identifierFields = append(p.identifierFields, path)
	case IsISODate(value):
		p.dateFields = append(p.dateFields, path)
	default:
		p.textFields = append(p.textFields, path)
	}
}

// IsISODate reports whether a string parses as an ISO 8601 date or timestamp.
func IsISODate(s string) bool {
	if len(s) < len("2006-01-02") {
		return false
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	return false
}
