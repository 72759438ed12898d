// Package storage persists whole collections: a Codec serializes a
// collection's full document array to and from its backing store, with no
// caching between calls. The file is the sole source of truth between
// operations.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/asaidimu/go-docstore/core/document"
)

// Sentinel errors returned by Codec implementations and name validation.
var (
	// ErrInvalidCollectionName means the collection name failed the safe
	// character check. Raised before any I/O.
	ErrInvalidCollectionName = errors.New("storage: invalid collection name")

	// ErrCorruptCollection means the backing content exists but is not a
	// JSON array of objects.
	ErrCorruptCollection = errors.New("storage: corrupt collection")

	// ErrSerialization means a document carries a value that cannot be
	// represented in the persisted format. Detected at save time, before
	// any bytes reach the backing store.
	ErrSerialization = errors.New("storage: unserializable document")
)

// Collection names become file names, so the allowed set excludes path
// separators, drive separators, dots and control characters outright.
var collectionNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateCollectionName checks a collection name against the safe character
// set. Every store operation calls this before touching the filesystem.
func ValidateCollectionName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: 1-64 of [A-Za-z0-9_-])", ErrInvalidCollectionName, name)
	}
	return nil
}

// CollectionPath resolves the backing file path for a collection under root.
// Pure function; callers are expected to have validated the name.
func CollectionPath(root, name string) string {
	return filepath.Join(root, name+".json")
}

// Codec serializes and deserializes a collection's full document array.
// Implementations perform no in-memory caching across calls.
type Codec interface {
	// Load returns every document in the collection in stored order, or an
	// empty slice when the collection does not exist yet. Content that is
	// present but not a JSON array of objects fails with an error wrapping
	// ErrCorruptCollection.
	Load(name string) ([]document.Document, error)

	// Save overwrites the collection with the given documents, creating
	// its backing store if absent. Save is all-or-nothing: either the
	// collection is fully rewritten or the previous content stays intact.
	Save(name string, docs []document.Document) error
}
