package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asaidimu/go-docstore/core/document"
	"go.uber.org/zap"
)

// FileCodec stores each collection as a pretty-printed JSON array in its own
// file under a root directory.
//
// Layout:
//
//	root/
//	  users.json   # "users" collection
//	  orders.json  # "orders" collection
type FileCodec struct {
	root   string
	logger *zap.Logger
}

var _ Codec = (*FileCodec)(nil)

// NewFileCodec creates a FileCodec rooted at dir, creating the directory if
// absent. A nil logger disables logging.
func NewFileCodec(dir string, logger *zap.Logger) (*FileCodec, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root directory %q: %w", dir, err)
	}
	return &FileCodec{root: dir, logger: logger}, nil
}

// Root returns the directory collections are stored under.
func (c *FileCodec) Root() string {
	return c.root
}

func (c *FileCodec) Load(name string) ([]document.Document, error) {
	path := CollectionPath(c.root, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []document.Document{}, nil
		}
		return nil, fmt.Errorf("storage: read collection %q: %w", name, err)
	}

	var docs []document.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %q is not a JSON array of objects: %v", ErrCorruptCollection, name, err)
	}
	if docs == nil {
		docs = []document.Document{}
	}
	c.logger.Debug("loaded collection",
		zap.String("collection", name),
		zap.Int("documents", len(docs)))
	return docs, nil
}

func (c *FileCodec) Save(name string, docs []document.Document) error {
	if docs == nil {
		docs = []document.Document{}
	}
	// Marshal before touching the filesystem so a bad value fails the
	// whole operation with the previous content intact.
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: collection %q: %v", ErrSerialization, name, err)
	}

	path := CollectionPath(c.root, name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create directory %q: %w", dir, err)
	}

	// Write to a temp file in the same directory and rename over the
	// target, so readers never observe a half-written collection.
	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file for collection %q: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("storage: write collection %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: close collection %q: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: replace collection %q: %w", name, err)
	}
	c.logger.Debug("saved collection",
		zap.String("collection", name),
		zap.Int("documents", len(docs)))
	return nil
}
