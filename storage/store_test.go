package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, store interfaces.KVStore) {
	ctx := context.Background()
	require.True(t, store.Available(ctx))
	assert.NotEmpty(t, store.Name())
	assert.NotEmpty(t, store.LocationURI())

	_, err := store.Get(ctx, "members/absent")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "members/0a0b", []byte("first")))
	value, err := store.Get(ctx, "members/0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), value)

	require.NoError(t, store.Put(ctx, "members/0a0b", []byte("second")))
	value, err = store.Get(ctx, "members/0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)

	value[0] = 'X'
	value, err = store.Get(ctx, "members/0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value, "returned values must not alias stored data")

	require.NoError(t, store.Put(ctx, "index/members", []byte{}))
	value, err = store.Get(ctx, "index/members")
	require.NoError(t, err)
	assert.Empty(t, value)

	for _, key := range []string{"", "../escape", "members//x", "members/a b", "/abs"} {
		assert.ErrorIs(t, store.Put(ctx, key, []byte("x")), ErrInvalidKey, "key %q", key)
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "data"), discardLogger())
	require.NoError(t, err)
	testStoreContract(t, store)

	reopened, err := NewFileStore(filepath.Join(dir, "data"), discardLogger())
	require.NoError(t, err)
	value, err := reopened.Get(context.Background(), "members/0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
}

func TestBadgerStore_InMemory(t *testing.T) {
	store, err := NewBadgerStore(BadgerConfig{}, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(BadgerConfig{DBPath: dir, SyncWrites: true}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "documents/01", []byte("sealed")))
	require.NoError(t, store.Close())
	assert.False(t, store.Available(ctx))

	reopened, err := NewBadgerStore(BadgerConfig{DBPath: dir}, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "documents/01")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), value)
}
