package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when a key has no value in the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StoreLocation is a URI identifying a key-value store.
type StoreLocation string

// KVStore provides key-value persistence. It has no native iteration;
// callers keep an index under a well-known key when they need one.
type KVStore interface {
	// Get retrieves the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StoreFactory creates key-value stores from location URIs.
type StoreFactory interface {
	// StoreFor creates a store from a URI.
	// Supports memory://, file://, badger://, vault://, s3://
	StoreFor(location StoreLocation) (KVStore, error)

	// CreateMultiStore creates a store mirroring writes to every location.
	CreateMultiStore(locations []StoreLocation) (KVStore, error)
}
