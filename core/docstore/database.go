// Package docstore implements the public collection store: named,
// file-backed document collections with insert, find, update and delete
// operations. Every operation is an independent load-mutate-save cycle
// against the collection's backing store; a per-collection mutex serializes
// those cycles so concurrent callers cannot lose each other's writes, while
// operations on different collections proceed in parallel.
package docstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asaidimu/go-docstore/core/document"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/asaidimu/go-docstore/core/storage"
	"github.com/asaidimu/go-events"
	"go.uber.org/zap"
)

// Database is the collection store. It is stateless between calls except for
// the codec bound at construction; the backing store is the sole source of
// truth. All methods are safe for concurrent use.
type Database struct {
	codec  storage.Codec
	logger *zap.Logger
	random io.Reader
	policy CorruptPolicy
	bus    *events.TypedEventBus[DocumentEvent]

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	subMu         sync.RWMutex
	subscriptions map[string]*SubscriptionInfo
}

// Open creates a Database persisting collections as JSON files under root,
// creating the directory if absent. Options may swap the codec, the logger,
// the random source behind id generation, and the corruption policy.
func Open(root string, opts ...Option) (*Database, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RandomSource == nil {
		cfg.RandomSource = rand.Reader
	}
	if cfg.Codec == nil {
		codec, err := storage.NewFileCodec(root, cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Codec = codec
	}

	bus, err := events.NewTypedEventBus[DocumentEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("docstore: could not initialize event bus: %w", err)
	}

	return &Database{
		codec:         cfg.Codec,
		logger:        cfg.Logger,
		random:        cfg.RandomSource,
		policy:        cfg.CorruptPolicy,
		bus:           bus,
		locks:         make(map[string]*sync.Mutex),
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

// lock returns the mutex serializing operations on the named collection,
// creating it on first use.
func (db *Database) lock(name string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	mu, ok := db.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		db.locks[name] = mu
	}
	return mu
}

// load reads the collection through the codec, applying the corruption
// policy.
func (db *Database) load(name string) ([]document.Document, error) {
	docs, err := db.codec.Load(name)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptCollection) && db.policy == CorruptRecover {
			db.logger.Warn("treating corrupt collection as empty",
				zap.String("collection", name),
				zap.Error(err))
			return []document.Document{}, nil
		}
		return nil, err
	}
	return docs, nil
}

// InsertOne assigns an identity to doc, appends it to the collection and
// saves. The stored document, id included, is returned.
func (db *Database) InsertOne(name string, doc any) (document.Document, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	d, err := document.EnsureID(doc, db.random)
	if err != nil {
		return nil, err
	}

	_, err = db.withEvents("insert", name, func() (int, error) {
		mu := db.lock(name)
		mu.Lock()
		defer mu.Unlock()

		docs, err := db.load(name)
		if err != nil {
			return 0, err
		}
		docs = append(docs, d)
		if err := db.codec.Save(name, docs); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return nil, err
	}
	db.logger.Debug("inserted document",
		zap.String("collection", name),
		zap.String("id", d.ID()))
	return d, nil
}

// InsertMany assigns identities in input order, appends all documents and
// saves once. Accepts []document.Document, []map[string]any or []any.
func (db *Database) InsertMany(name string, docs any) ([]document.Document, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	coerced, err := document.CoerceSlice(docs)
	if err != nil {
		return nil, err
	}
	for i, d := range coerced {
		if _, err := document.EnsureID(d, db.random); err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
	}

	_, err = db.withEvents("insert", name, func() (int, error) {
		mu := db.lock(name)
		mu.Lock()
		defer mu.Unlock()

		stored, err := db.load(name)
		if err != nil {
			return 0, err
		}
		stored = append(stored, coerced...)
		if err := db.codec.Save(name, stored); err != nil {
			return 0, err
		}
		return len(coerced), nil
	})
	if err != nil {
		return nil, err
	}
	return coerced, nil
}

// FindByID returns the document with the given id, or nil when no document
// matches. Absence is not an error.
func (db *Database) FindByID(name, id string) (document.Document, error) {
	return db.FindOne(name, query.ByID(document.IDField, id))
}

// FindOne returns the first document matching the filter in stored order, or
// nil when nothing matches.
func (db *Database) FindOne(name string, f query.Filter) (document.Document, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	mu := db.lock(name)
	mu.Lock()
	defer mu.Unlock()

	docs, err := db.load(name)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		ok, err := query.Matches(d, f)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
	}
	return nil, nil
}

// FindMany returns every document matching the filter, preserving stored
// order. An empty filter returns the whole collection.
func (db *Database) FindMany(name string, f query.Filter) ([]document.Document, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	mu := db.lock(name)
	mu.Lock()
	defer mu.Unlock()

	docs, err := db.load(name)
	if err != nil {
		return nil, err
	}
	matched := []document.Document{}
	for _, d := range docs {
		ok, err := query.Matches(d, f)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// UpdateByID merges the update spec into the document with the given id and
// saves. Updating a missing id is a no-op, not an error.
func (db *Database) UpdateByID(name, id string, update any) error {
	_, err := db.update(name, query.ByID(document.IDField, id), update)
	return err
}

// Update merges the update spec into every document matching the filter and
// saves. It returns the number of documents merged.
func (db *Database) Update(name string, f query.Filter, update any) (int, error) {
	return db.update(name, f, update)
}

func (db *Database) update(name string, f query.Filter, update any) (int, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return 0, err
	}
	spec, err := document.Coerce(update)
	if err != nil {
		return 0, err
	}

	return db.withEvents("update", name, func() (int, error) {
		mu := db.lock(name)
		mu.Lock()
		defer mu.Unlock()

		docs, err := db.load(name)
		if err != nil {
			return 0, err
		}
		count := 0
		for _, d := range docs {
			ok, err := query.Matches(d, f)
			if err != nil {
				return 0, err
			}
			if ok {
				merge(d, spec)
				count++
			}
		}
		if err := db.codec.Save(name, docs); err != nil {
			return 0, err
		}
		return count, nil
	})
}

// DeleteByID removes the document with the given id and saves. Deleting a
// missing id is a no-op, not an error.
func (db *Database) DeleteByID(name, id string) error {
	_, err := db.Delete(name, query.ByID(document.IDField, id))
	return err
}

// Delete removes every document matching the filter, preserving the order of
// the remaining documents, and saves. It returns the number removed.
func (db *Database) Delete(name string, f query.Filter) (int, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return 0, err
	}

	return db.withEvents("delete", name, func() (int, error) {
		mu := db.lock(name)
		mu.Lock()
		defer mu.Unlock()

		docs, err := db.load(name)
		if err != nil {
			return 0, err
		}
		kept := docs[:0]
		count := 0
		for _, d := range docs {
			ok, err := query.Matches(d, f)
			if err != nil {
				return 0, err
			}
			if ok {
				count++
				continue
			}
			kept = append(kept, d)
		}
		if err := db.codec.Save(name, kept); err != nil {
			return 0, err
		}
		return count, nil
	})
}

// merge applies the shallow field merge of an update spec onto a document.
// The identity field is never overwritten: ids are immutable once assigned.
func merge(doc document.Document, spec document.Document) {
	for k, v := range spec {
		if k == document.IDField {
			continue
		}
		doc[k] = v
	}
}
