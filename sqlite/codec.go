// Package sqlite provides a storage.Codec that keeps every collection in a
// single SQLite database instead of one JSON file per collection. Documents
// are stored as JSON text rows ordered by their position in the collection,
// so load and save preserve the array semantics of the file codec exactly.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/asaidimu/go-docstore/core/document"
	"github.com/asaidimu/go-docstore/core/storage"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// Codec implements storage.Codec on top of a SQLite database.
//
// Schema:
//
//	documents(collection TEXT, position INTEGER, data TEXT,
//	          PRIMARY KEY (collection, position))
type Codec struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ storage.Codec = (*Codec)(nil)

// NewCodec opens (or creates) the database at path and prepares the
// documents table. A nil logger disables logging.
func NewCodec(path string, logger *zap.Logger) (*Codec, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		position   INTEGER NOT NULL,
		data       TEXT NOT NULL,
		PRIMARY KEY (collection, position)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create documents table: %w", err)
	}
	return &Codec{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (c *Codec) Close() error {
	return c.db.Close()
}

func (c *Codec) Load(name string) ([]document.Document, error) {
	rows, err := c.db.Query(
		"SELECT data FROM documents WHERE collection = ? ORDER BY position",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read collection %q: %w", name, err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan collection %q: %w", name, err)
		}
		var doc document.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("%w: %q row %d is not a JSON object: %v",
				storage.ErrCorruptCollection, name, len(docs), err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read collection %q: %w", name, err)
	}
	c.logger.Debug("loaded collection",
		zap.String("collection", name),
		zap.Int("documents", len(docs)))
	return docs, nil
}

func (c *Codec) Save(name string, docs []document.Document) error {
	// Marshal everything up front so a bad value fails the operation
	// before the transaction starts.
	encoded := make([]string, len(docs))
	for i, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("%w: collection %q: %v", storage.ErrSerialization, name, err)
		}
		encoded[i] = string(data)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin save of collection %q: %w", name, err)
	}
	if _, err := tx.Exec("DELETE FROM documents WHERE collection = ?", name); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: clear collection %q: %w", name, err)
	}
	for i, data := range encoded {
		if _, err := tx.Exec(
			"INSERT INTO documents (collection, position, data) VALUES (?, ?, ?)",
			name, i, data,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: write collection %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit collection %q: %w", name, err)
	}
	c.logger.Debug("saved collection",
		zap.String("collection", name),
		zap.Int("documents", len(docs)))
	return nil
}
