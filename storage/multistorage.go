package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/quorum-vault/interfaces"
)

// MultiStore implements interfaces.KVStore over several stores. Writes go to every
// available store; reads are served by the first store that has the key.
type MultiStore struct {
	stores []interfaces.KVStore
	log    *slog.Logger
}

// NewMultiStore creates a mirrored store with read fallback.
func NewMultiStore(stores []interfaces.KVStore, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		stores: stores,
		log:    logger,
	}
}

// Get returns the value from the first available store that has key. ErrKeyNotFound is
// returned only when every reachable store reports the key as absent.
func (m *MultiStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var errs []error
	reached := 0

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable",
				slog.String("store_name", store.Name()),
				slog.String("key", key))
			continue
		}
		reached++

		data, err := store.Get(ctx, key)
		if err == nil {
			m.log.Debug("Fetched value",
				slog.String("store_name", store.Name()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			continue
		}

		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("Failed to fetch from store",
			slog.String("store_name", store.Name()),
			slog.String("key", key),
			"err", err)
	}

	if reached == 0 {
		return nil, fmt.Errorf("%w: no store reachable", interfaces.ErrBackendUnavailable)
	}
	if len(errs) == 0 {
		return nil, interfaces.ErrKeyNotFound
	}

	m.log.Error("All stores failed to fetch value",
		slog.String("key", key),
		slog.Int("failed_stores", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all stores failed to fetch %s: %w", key, errors.Join(errs...))
}

// Put writes value to all available stores and succeeds if at least one write did.
func (m *MultiStore) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	var errs []error
	stored := 0

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Store unavailable", slog.String("store_name", store.Name()))
			continue
		}

		if err := store.Put(ctx, key, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Warn("Failed to store to store",
				slog.String("store_name", store.Name()),
				slog.String("key", key),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All stores failed to store value",
			slog.String("key", key),
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("%w: no store reachable", interfaces.ErrBackendUnavailable)
		}
		return fmt.Errorf("all stores failed to store %s: %w", key, errors.Join(errs...))
	}

	return nil
}

// Available checks if any store is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStore) Name() string {
	return "multi-store"
}

// LocationURI combines the location URIs of all stores.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}

// Close closes every underlying store that holds resources.
func (m *MultiStore) Close() error {
	var errs []error
	for _, store := range m.stores {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
