package storage

import (
	"bytes"
	"context"
	"sync"

	"github.com/ruteri/quorum-vault/interfaces"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	return bytes.Clone(value), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *MemoryStore) Available(ctx context.Context) bool {
	return true
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) LocationURI() string {
	return "memory://"
}
