package docstore

import (
	"github.com/asaidimu/go-docstore/core/document"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/asaidimu/go-docstore/core/storage"
)

// Collection is a handle bound to one collection name, exposing the same
// operations as Database without repeating the name. Handles share the
// database's locks and event bus, so mixing handle and Database calls on the
// same collection stays serialized.
type Collection struct {
	name string
	db   *Database
}

// Collection returns a handle bound to the named collection. The name is
// validated once here; the backing store is still created lazily on first
// insert.
func (db *Database) Collection(name string) (*Collection, error) {
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	return &Collection{name: name, db: db}, nil
}

// Name returns the collection name the handle is bound to.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) InsertOne(doc any) (document.Document, error) {
	return c.db.InsertOne(c.name, doc)
}

func (c *Collection) InsertMany(docs any) ([]document.Document, error) {
	return c.db.InsertMany(c.name, docs)
}

func (c *Collection) FindByID(id string) (document.Document, error) {
	return c.db.FindByID(c.name, id)
}

func (c *Collection) FindOne(f query.Filter) (document.Document, error) {
	return c.db.FindOne(c.name, f)
}

func (c *Collection) FindMany(f query.Filter) ([]document.Document, error) {
	return c.db.FindMany(c.name, f)
}

func (c *Collection) UpdateByID(id string, update any) error {
	return c.db.UpdateByID(c.name, id, update)
}

func (c *Collection) Update(f query.Filter, update any) (int, error) {
	return c.db.Update(c.name, f, update)
}

func (c *Collection) DeleteByID(id string) error {
	return c.db.DeleteByID(c.name, id)
}

func (c *Collection) Delete(f query.Filter) (int, error) {
	return c.db.Delete(c.name, f)
}
