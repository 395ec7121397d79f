// Package summary renders documents into deterministic semantic text.
// The text is the embedding input; byte-identical output for unchanged
// input is what makes staleness checks possible.
package summary

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/vecsync/internal/domain/document"
	"github.com/kailas-cloud/vecsync/internal/domain/profile"
)

// MinTextLength is the embeddability threshold. Shorter summaries would
// produce near-empty embeddings for sparse documents and are skipped.
const MinTextLength = 10

// numericTokens allow-lists numeric leaf names worth including in the text.
// Other numerics stay out of the summary to keep it compact.
var numericTokens = []string{"amount", "count", "content", "value", "price", "quantity"}

// Summary is the derived semantic text for one document. Never mutated,
// only regenerated.
type Summary struct {
	DocumentID string
	TypeName   string
	Text       string
	Keywords   string
}

// Embeddable reports whether the summary text is long enough to embed.
func (s Summary) Embeddable() bool {
	return len(s.Text) >= MinTextLength
}

// Generate renders a document against its type profile. Fragments are
// emitted in a fixed order: type, text, identifier, allow-listed numeric,
// date, array fields, joined with ". ".
func Generate(doc document.Document, p profile.Profile) Summary {
	var fragments []string
	var keywords []string

	if p.TypeName() != "" {
		fragments = append(fragments, "Document type: "+p.TypeName())
	}

	for _, path := range p.TextFields() {
		v, ok := doc.Lookup(path)
		if !ok {
			continue
		}
		s, ok := v.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			continue
		}
		fragments = append(fragments, document.Leaf(path)+": "+s)
		keywords = append(keywords, strings.ToLower(s))
	}

	for _, path := range p.IdentifierFields() {
		v, ok := doc.Lookup(path)
		if !ok {
			continue
		}
		s := formatScalar(v)
		if s == "" {
			continue
		}
		fragments = append(fragments, document.Leaf(path)+": "+s)
		keywords = append(keywords, strings.ToLower(s))
	}

	for _, path := range p.NumericFields() {
		if !numericAllowed(document.Leaf(path)) {
			continue
		}
		v, ok := doc.Lookup(path)
		if !ok {
			continue
		}
		if s := formatScalar(v); s != "" {
			fragments = append(fragments, document.Leaf(path)+": "+s)
		}
	}

	for _, path := range p.DateFields() {
		v, ok := doc.Lookup(path)
		if !ok {
			continue
		}
		if s := formatDate(v); s != "" {
			fragments = append(fragments, document.Leaf(path)+": "+s)
		}
	}

	for _, path := range p.ArrayFields() {
		v, ok := doc.Lookup(path)
		if !ok {
			continue
		}
		if arr, ok := v.([]any); ok {
			fragments = append(fragments, document.Leaf(path)+": "+strconv.Itoa(len(arr))+" items")
		}
	}

	keywords = appendLeafNames(keywords, p)

	return Summary{
		DocumentID: doc.IDString(),
		TypeName:   p.TypeName(),
		Text:       strings.Join(fragments, ". "),
		Keywords:   strings.Join(keywords, " "),
	}
}

// appendLeafNames adds every profiled field's lower-cased leaf name, in
// profile order, for fallback lexical search.
func appendLeafNames(keywords []string, p profile.Profile) []string {
	for _, group := range [][]string{
		p.TextFields(), p.IdentifierFields(), p.NumericFields(),
		p.DateFields(), p.ArrayFields(), p.ObjectFields(),
	} {
		for _, path := range group {
			keywords = append(keywords, strings.ToLower(document.Leaf(path)))
		}
	}
	return keywords
}

func numericAllowed(leaf string) bool {
	lower := strings.ToLower(leaf)
	for _, tok := range numericTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func formatScalar(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return ""
	}
}

// formatDate returns the ISO date portion (yyyy-mm-dd) of a date value.
func formatDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format("2006-01-02")
	case string:
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.UTC().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", d); err == nil {
			return d
		}
		return ""
	default:
		return ""
	}
}
