package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/asaidimu/go-docstore/core/document"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/asaidimu/go-docstore/core/storage"
	"github.com/asaidimu/go-docstore/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqReader is a deterministic random source: an endless stream of
// incrementing bytes, so consecutive generated ids are distinct.
type seqReader struct {
	mu sync.Mutex
	n  byte
}

func (r *seqReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range p {
		p[i] = r.n
		r.n++
	}
	return len(p), nil
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	return db
}

func TestInsertOneAndFindOne(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.InsertOne("users", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	assert.Len(t, inserted.ID(), 16)

	found, err := db.FindOne("users", query.Filter{"name": query.Eq("Alice")})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice", found["name"])
	assert.Equal(t, inserted.ID(), found.ID())
}

func TestInsertManyPreservesOrder(t *testing.T) {
	db := openTestDB(t)

	relations := []string{"mother", "father", "daughter", "son", "son"}
	docs := make([]map[string]any, len(relations))
	for i, rel := range relations {
		docs[i] = map[string]any{"relation": rel, "seq": i}
	}
	inserted, err := db.InsertMany("fam", docs)
	require.NoError(t, err)
	require.Len(t, inserted, 5)

	sons, err := db.FindMany("fam", query.Filter{"relation": query.Eq("son")})
	require.NoError(t, err)
	require.Len(t, sons, 2)
	assert.Equal(t, float64(3), sons[0]["seq"])
	assert.Equal(t, float64(4), sons[1]["seq"])
}

func TestFindManyEmptyFilterReturnsAll(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertMany("fam", []map[string]any{{"n": 1}, {"n": 2}, {"n": 3}})
	require.NoError(t, err)

	all, err := db.FindMany("fam", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFindManyIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertMany("fam", []map[string]any{{"n": 1}, {"n": 2}})
	require.NoError(t, err)

	first, err := db.FindMany("fam", query.Filter{"n": query.OneOf(1, 2)})
	require.NoError(t, err)
	second, err := db.FindMany("fam", query.Filter{"n": query.OneOf(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdateByID(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.InsertOne("users", map[string]any{"name": "Alice", "age": 30})
	require.NoError(t, err)
	id := inserted.ID()

	require.NoError(t, db.UpdateByID("users", id, map[string]any{"name": "Alice Smith"}))

	found, err := db.FindByID("users", id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice Smith", found["name"])
	assert.Equal(t, float64(30), found["age"]) // untouched fields survive the merge
	assert.Equal(t, id, found.ID())
}

func TestUpdateMergesShallowly(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertMany("users", []map[string]any{
		{"name": "Alice", "active": true},
		{"name": "Bob", "active": true},
		{"name": "Carol", "active": false},
	})
	require.NoError(t, err)

	count, err := db.Update("users",
		query.Filter{"active": query.Eq(true)},
		map[string]any{"active": false, "note": "deactivated"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	inactive, err := db.FindMany("users", query.Filter{"active": query.Eq(false)})
	require.NoError(t, err)
	assert.Len(t, inactive, 3)

	noted, err := db.FindMany("users", query.Filter{"note": query.Eq("deactivated")})
	require.NoError(t, err)
	assert.Len(t, noted, 2)
}

func TestUpdateCannotChangeID(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.InsertOne("users", map[string]any{"name": "Alice"})
	require.NoError(t, err)
	id := inserted.ID()

	require.NoError(t, db.UpdateByID("users", id, map[string]any{"_id": "hijacked", "name": "Eve"}))

	found, err := db.FindByID("users", id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Eve", found["name"])
}

func TestUpdateMissingIDIsNoop(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertOne("users", map[string]any{"name": "Alice"})
	require.NoError(t, err)

	assert.NoError(t, db.UpdateByID("users", "nope", map[string]any{"name": "Ghost"}))

	all, err := db.FindMany("users", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Alice", all[0]["name"])
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertMany("fam", []map[string]any{
		{"name": "Liam", "seq": 0},
		{"name": "Noah", "seq": 1},
		{"name": "Emma", "seq": 2},
		{"name": "Ava", "seq": 3},
		{"name": "Mia", "seq": 4},
	})
	require.NoError(t, err)

	count, err := db.Delete("fam", query.Filter{"name": query.Eq("Liam")})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	remaining, err := db.FindMany("fam", nil)
	require.NoError(t, err)
	require.Len(t, remaining, 4)
	// Removal is stable with respect to the remaining order.
	for i, d := range remaining {
		assert.Equal(t, float64(i+1), d["seq"])
	}
}

func TestDeleteByID(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.InsertMany("users", []map[string]any{{"name": "Alice"}, {"name": "Bob"}})
	require.NoError(t, err)

	require.NoError(t, db.DeleteByID("users", inserted[0].ID()))

	all, err := db.FindMany("users", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bob", all[0]["name"])

	// Deleting an unknown id is a no-op.
	assert.NoError(t, db.DeleteByID("users", "nope"))
}

func TestFindByIDMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)

	found, err := db.FindByID("users", "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSequentialInsertsCreateAndAppend(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)

	path := storage.CollectionPath(dir, "fresh")
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	first, err := db.InsertOne("fresh", map[string]any{"n": 1})
	require.NoError(t, err)
	_, statErr = os.Stat(path)
	require.NoError(t, statErr)

	_, err = db.InsertOne("fresh", map[string]any{"n": 2})
	require.NoError(t, err)

	all, err := db.FindMany("fresh", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID(), all[0].ID())
	assert.Equal(t, float64(1), all[0]["n"])
	assert.Equal(t, float64(2), all[1]["n"])
}

func TestInvalidCollectionName(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertOne("../etc", map[string]any{})
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	_, err = db.InsertMany("a/b", []map[string]any{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	_, err = db.FindByID("", "x")
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	_, err = db.FindMany("a b", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	err = db.UpdateByID("a:b", "x", map[string]any{})
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	_, err = db.Delete("a\\b", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)

	_, err = db.Collection("no/good")
	assert.ErrorIs(t, err, storage.ErrInvalidCollectionName)
}

func TestInvalidDocumentKind(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertOne("users", "not a document")
	assert.ErrorIs(t, err, document.ErrInvalidDocumentKind)

	_, err = db.InsertMany("users", []any{map[string]any{"ok": true}, 42})
	assert.ErrorIs(t, err, document.ErrInvalidDocumentKind)

	err = db.UpdateByID("users", "x", []any{"not", "an", "update"})
	assert.ErrorIs(t, err, document.ErrInvalidDocumentKind)
}

func TestSerializationErrorSurfacesAtSave(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertOne("users", map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, storage.ErrSerialization)

	// The failed insert must not have created the collection.
	all, err := db.FindMany("users", nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCorruptPolicy(t *testing.T) {
	t.Run("default fails", func(t *testing.T) {
		dir := t.TempDir()
		db, err := Open(dir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(storage.CollectionPath(dir, "users"), []byte("not json"), 0o644))

		_, err = db.FindMany("users", nil)
		assert.ErrorIs(t, err, storage.ErrCorruptCollection)
	})

	t.Run("recover treats as empty", func(t *testing.T) {
		dir := t.TempDir()
		db, err := Open(dir, WithCorruptPolicy(CorruptRecover))
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(storage.CollectionPath(dir, "users"), []byte("not json"), 0o644))

		all, err := db.FindMany("users", nil)
		require.NoError(t, err)
		assert.Empty(t, all)

		// The next insert overwrites the corrupt content.
		_, err = db.InsertOne("users", map[string]any{"name": "Alice"})
		require.NoError(t, err)
		all, err = db.FindMany("users", nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestDeterministicRandomSource(t *testing.T) {
	db, err := Open(t.TempDir(), WithRandomSource(&seqReader{}))
	require.NoError(t, err)

	first, err := db.InsertOne("users", map[string]any{"n": 1})
	require.NoError(t, err)
	second, err := db.InsertOne("users", map[string]any{"n": 2})
	require.NoError(t, err)

	assert.Equal(t, "0001020304050607", first.ID())
	assert.Equal(t, "08090a0b0c0d0e0f", second.ID())
}

func TestMemoryCodecBackend(t *testing.T) {
	db, err := Open("", WithCodec(storage.NewMemoryCodec()))
	require.NoError(t, err)

	_, err = db.InsertOne("users", map[string]any{"name": "Alice"})
	require.NoError(t, err)

	found, err := db.FindOne("users", query.Filter{"name": query.Eq("Alice")})
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestCollectionHandle(t *testing.T) {
	db := openTestDB(t)

	users, err := db.Collection("users")
	require.NoError(t, err)
	assert.Equal(t, "users", users.Name())

	inserted, err := users.InsertOne(map[string]any{"name": "Alice"})
	require.NoError(t, err)

	found, err := users.FindByID(inserted.ID())
	require.NoError(t, err)
	require.NotNil(t, found)

	require.NoError(t, users.UpdateByID(inserted.ID(), map[string]any{"name": "Alice Smith"}))

	// Handle and Database views stay consistent.
	fromDB, err := db.FindByID("users", inserted.ID())
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", fromDB["name"])

	count, err := users.Delete(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentInsertsAreSerialized(t *testing.T) {
	db := openTestDB(t)

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := db.InsertOne("users", map[string]any{"n": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := db.FindMany("users", nil)
	require.NoError(t, err)
	assert.Len(t, all, n) // no lost updates

	seen := map[string]bool{}
	for _, d := range all {
		assert.False(t, seen[d.ID()], "duplicate id %s", d.ID())
		seen[d.ID()] = true
	}
}

func TestRoundTripThroughReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	docs := make([]map[string]any, 3)
	for i := range docs {
		docs[i] = map[string]any{"seq": i, "name": fmt.Sprintf("doc-%d", i)}
	}
	inserted, err := db.InsertMany("items", docs)
	require.NoError(t, err)

	// A fresh Database over the same directory sees identical state: the
	// file is the sole source of truth between calls.
	reopened, err := Open(dir)
	require.NoError(t, err)
	loaded, err := reopened.FindMany("items", nil)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, d := range loaded {
		assert.Equal(t, inserted[i].ID(), d.ID())
		assert.Equal(t, float64(i), d["seq"])
	}
}

func TestNewCodecFactory(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		c, err := NewCodec("file", t.TempDir(), nil)
		require.NoError(t, err)
		assert.IsType(t, &storage.FileCodec{}, c)
	})

	t.Run("default is file", func(t *testing.T) {
		c, err := NewCodec("", t.TempDir(), nil)
		require.NoError(t, err)
		assert.IsType(t, &storage.FileCodec{}, c)
	})

	t.Run("memory", func(t *testing.T) {
		c, err := NewCodec("memory", "", nil)
		require.NoError(t, err)
		assert.IsType(t, &storage.MemoryCodec{}, c)
	})

	t.Run("sqlite", func(t *testing.T) {
		dir := t.TempDir()
		c, err := NewCodec("sqlite", dir, nil)
		require.NoError(t, err)
		require.IsType(t, &sqlite.Codec{}, c)
		defer c.(*sqlite.Codec).Close()

		// The database file lands under the given path.
		_, statErr := os.Stat(filepath.Join(dir, "docstore.db"))
		assert.NoError(t, statErr)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewCodec("etcd", "", nil)
		assert.Error(t, err)
	})
}
