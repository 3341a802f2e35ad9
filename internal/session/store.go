package session

import (
	"context"
	"sync"
)

// Store maps a caller-chosen key to a captured session id.
//
// Load returns "" and a nil error when nothing is stored under key.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, sessionID string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ids[key], nil
}

// Save implements Store. Empty keys and ids are ignored.
func (s *MemoryStore) Save(_ context.Context, key, sessionID string) error {
	if key == "" || sessionID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[key] = sessionID

	return nil
}
