package memory

import (
	"context"
	"sync"

	"github.com/mamadbah2/pharmacy/internal/cart"
)

// SnapshotStore keeps cart snapshots in process memory. Snapshots do not survive a restart.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string][]byte)}
}

var _ cart.Storage = (*SnapshotStore)(nil)

// Load returns a copy of the snapshot stored under key.
func (s *SnapshotStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	if !ok {
		return nil, cart.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save replaces the snapshot under key.
func (s *SnapshotStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Remove deletes the snapshot under key.
func (s *SnapshotStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Has reports whether a snapshot exists under key.
func (s *SnapshotStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}
