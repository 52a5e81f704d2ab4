package settings

import (
	"context"
	"sync"
)

// Store is the persistence contract for user settings. Implementations can
// be Redis-backed or in-memory; callers never depend on which.
type Store interface {
	// Load returns the stored settings for user. ok is false when nothing
	// is stored yet.
	Load(ctx context.Context, user string) (s Settings, ok bool, err error)

	// Save stores the settings for user, replacing any previous value.
	Save(ctx context.Context, user string, s Settings) error

	Close() error
}

// MemoryStore is a concurrency-safe in-memory Store. It backs tests and
// deployments without Redis configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Settings
}

// NewMemoryStore returns a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Settings)}
}

// Load implements Store.Load.
func (s *MemoryStore) Load(_ context.Context, user string) (Settings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[user]
	return st, ok, nil
}

// Save implements Store.Save.
func (s *MemoryStore) Save(_ context.Context, user string, st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = st
	return nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
