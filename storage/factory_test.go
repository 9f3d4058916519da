package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/quorum-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFactory_StoreFor(t *testing.T) {
	dir := t.TempDir()
	factory := NewStoreFactory(discardLogger())

	tests := []struct {
		name     string
		location interfaces.StoreLocation
		expected string
	}{
		{name: "memory", location: "memory://", expected: "*storage.MemoryStore"},
		{name: "file", location: interfaces.StoreLocation("file://" + filepath.Join(dir, "files")), expected: "*storage.FileStore"},
		{name: "badger in memory", location: "badger://?memory=true", expected: "*storage.BadgerStore"},
		{name: "badger on disk", location: interfaces.StoreLocation("badger://" + filepath.Join(dir, "db") + "?sync=true"), expected: "*storage.BadgerStore"},
		{name: "vault", location: "vault://127.0.0.1:8200/secret/quorum?tls=false&token=root", expected: "*storage.VaultStore"},
		{name: "s3", location: "s3://key:secret@bucket/prefix/?region=eu-west-1&endpoint=http://127.0.0.1:9000", expected: "*storage.S3Store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := factory.StoreFor(tt.location)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, typeName(store))
			if closer, ok := store.(*BadgerStore); ok {
				closer.Close()
			}
		})
	}
}

func TestStoreFactory_InvalidLocations(t *testing.T) {
	factory := NewStoreFactory(discardLogger())

	for _, location := range []interfaces.StoreLocation{
		"ipfs://127.0.0.1:5001",
		"file://",
		"badger://",
		"badger:///tmp/db?sync=maybe",
		"vault:///secret",
		"s3:///prefix",
		"://nope",
	} {
		_, err := factory.StoreFor(location)
		assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI, "location %q", location)
	}
}

func TestStoreFactory_CreateMultiStore(t *testing.T) {
	dir := t.TempDir()
	factory := NewStoreFactory(discardLogger())
	ctx := context.Background()

	store, err := factory.CreateMultiStore([]interfaces.StoreLocation{
		"memory://",
		interfaces.StoreLocation("file://" + dir),
		"unsupported://",
	})
	require.NoError(t, err)
	require.IsType(t, &MultiStore{}, store)

	require.NoError(t, store.Put(ctx, "members/01", []byte("mirrored")))

	fileStore, err := NewFileStore(dir, discardLogger())
	require.NoError(t, err)
	value, err := fileStore.Get(ctx, "members/01")
	require.NoError(t, err)
	assert.Equal(t, []byte("mirrored"), value)
	require.NoError(t, store.(*MultiStore).Close())

	single, err := factory.CreateMultiStore([]interfaces.StoreLocation{"memory://"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, single)

	_, err = factory.CreateMultiStore([]interfaces.StoreLocation{"unsupported://"})
	assert.Error(t, err)

	withBadger, err := factory.CreateMultiStore([]interfaces.StoreLocation{"memory://", "badger://?memory=true"})
	require.NoError(t, err)
	require.NoError(t, withBadger.Put(ctx, "k", []byte("v")))
	require.NoError(t, withBadger.(*MultiStore).Close())
	assert.False(t, withBadger.(*MultiStore).stores[1].Available(ctx))
}

func typeName(v any) string {
	switch v.(type) {
	case *MemoryStore:
		return "*storage.MemoryStore"
	case *FileStore:
		return "*storage.FileStore"
	case *BadgerStore:
		return "*storage.BadgerStore"
	case *VaultStore:
		return "*storage.VaultStore"
	case *S3Store:
		return "*storage.S3Store"
	case *MultiStore:
		return "*storage.MultiStore"
	default:
		return "unknown"
	}
}
