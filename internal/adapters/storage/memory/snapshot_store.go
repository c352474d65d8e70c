package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/mealprep-agent/internal/domain"
)

// SnapshotStore is an in-memory implementation of domain.SnapshotStore.
// It is NOT persistent and is only suitable for development and tests.
type SnapshotStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{docs: make(map[string][]byte)}
}

func (s *SnapshotStore) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[name]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *SnapshotStore) Save(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[name] = append([]byte(nil), data...)
	return nil
}
