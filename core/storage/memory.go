package storage

import (
	"sync"

	"github.com/asaidimu/go-docstore/core/document"
)

// MemoryCodec keeps collections in process memory. Ephemeral, mainly for
// tests; it mirrors FileCodec's copy semantics so callers cannot alias
// stored state.
type MemoryCodec struct {
	mu          sync.RWMutex
	collections map[string][]document.Document
}

var _ Codec = (*MemoryCodec)(nil)

// NewMemoryCodec creates an empty in-memory codec.
func NewMemoryCodec() *MemoryCodec {
	return &MemoryCodec{collections: make(map[string][]document.Document)}
}

func (c *MemoryCodec) Load(name string) ([]document.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneDocs(c.collections[name]), nil
}

func (c *MemoryCodec) Save(name string, docs []document.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections[name] = cloneDocs(docs)
	return nil
}

func cloneDocs(docs []document.Document) []document.Document {
	out := make([]document.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}
