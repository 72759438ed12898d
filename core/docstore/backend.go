package docstore

import (
	"fmt"
	"path/filepath"

	"github.com/asaidimu/go-docstore/core/storage"
	"github.com/asaidimu/go-docstore/sqlite"
	"go.uber.org/zap"
)

// NewCodec creates a storage backend by name, for callers that select the
// backend from configuration rather than constructing one directly.
//
// Supported backends:
//
//	"file"   - one JSON file per collection under path (default)
//	"sqlite" - all collections in a SQLite database at path/docstore.db
//	"memory" - in-memory (ephemeral, for testing)
func NewCodec(backend, path string, logger *zap.Logger) (storage.Codec, error) {
	switch backend {
	case "file", "":
		return storage.NewFileCodec(path, logger)
	case "sqlite":
		return sqlite.NewCodec(filepath.Join(path, "docstore.db"), logger)
	case "memory":
		return storage.NewMemoryCodec(), nil
	default:
		return nil, fmt.Errorf("docstore: unknown backend: %q (supported: file, sqlite, memory)", backend)
	}
}
