// Package document defines the document model shared by every layer of the
// store: a JSON-compatible field map carrying a unique string identifier in
// its reserved "_id" field. It also implements identity assignment, the only
// piece of the store that consumes randomness.
package document

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// IDField is the reserved field name carrying a document's identity.
const IDField = "_id"

// idBytes is the number of random bytes behind a generated identifier.
// Hex-encoded it yields a 16 character string, enough entropy to make
// collisions within a single collection negligible.
const idBytes = 8

// ErrInvalidDocumentKind is returned when a caller-supplied value cannot be
// treated as a plain JSON object (it is an array, nil, a primitive, or its
// identity field is not a string).
var ErrInvalidDocumentKind = errors.New("document: value is not a plain object")

// Document is a JSON-compatible mapping from field name to value. Values are
// whatever encoding/json produces: strings, float64 numbers, bools, nil,
// nested map[string]any and []any.
type Document map[string]any

// ID returns the document's identifier, or the empty string when it has none
// (or it is not a string).
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a shallow copy of the document. Nested objects and arrays are
// shared with the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Coerce converts a caller-supplied value into a Document. Accepted inputs
// are Document and map[string]any; anything else fails with
// ErrInvalidDocumentKind before any I/O happens.
func Coerce(v any) (Document, error) {
	switch doc := v.(type) {
	case Document:
		if doc == nil {
			return nil, fmt.Errorf("%w: nil document", ErrInvalidDocumentKind)
		}
		return doc, nil
	case map[string]any:
		if doc == nil {
			return nil, fmt.Errorf("%w: nil document", ErrInvalidDocumentKind)
		}
		return Document(doc), nil
	default:
		return nil, fmt.Errorf("%w: expected map[string]any, got %T", ErrInvalidDocumentKind, v)
	}
}

// CoerceSlice converts a caller-supplied value into a slice of Documents,
// preserving input order. Accepted inputs are []Document, []map[string]any
// and []any whose elements individually pass Coerce.
func CoerceSlice(v any) ([]Document, error) {
	switch docs := v.(type) {
	case []Document:
		for i, d := range docs {
			if d == nil {
				return nil, fmt.Errorf("%w: nil document at index %d", ErrInvalidDocumentKind, i)
			}
		}
		return docs, nil
	case []map[string]any:
		out := make([]Document, len(docs))
		for i, d := range docs {
			if d == nil {
				return nil, fmt.Errorf("%w: nil document at index %d", ErrInvalidDocumentKind, i)
			}
			out[i] = Document(d)
		}
		return out, nil
	case []any:
		out := make([]Document, len(docs))
		for i, raw := range docs {
			d, err := Coerce(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a slice of objects, got %T", ErrInvalidDocumentKind, v)
	}
}

// NewID generates a fresh document identifier from the given random source:
// idBytes random bytes, lowercase hex encoded. A nil source falls back to
// crypto/rand.
func NewID(src io.Reader) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, idBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("document: generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// EnsureID coerces v into a Document and guarantees it carries an identity.
// A missing or empty "_id" is replaced with a generated one; a non-empty
// string "_id" is left untouched, so the call is idempotent. A present but
// non-string "_id" fails with ErrInvalidDocumentKind. The document is
// modified in place and returned.
func EnsureID(v any, src io.Reader) (Document, error) {
	doc, err := Coerce(v)
	if err != nil {
		return nil, err
	}
	if raw, ok := doc[IDField]; ok && raw != nil {
		id, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidDocumentKind, IDField, raw)
		}
		if id != "" {
			return doc, nil
		}
	}
	id, err := NewID(src)
	if err != nil {
		return nil, err
	}
	doc[IDField] = id
	return doc, nil
}
