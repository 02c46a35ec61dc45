package keystore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used in tests and on platforms without
// an OS credential store. It provides no at-rest protection.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, id string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[id] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Retrieve(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.secrets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, id)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.secrets[id]
	return ok, nil
}
