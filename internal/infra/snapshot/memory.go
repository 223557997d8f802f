package snapshot

import (
	"context"
	"sync"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
)

// MemoryStore keeps the latest snapshot in process memory for tests/dev.
type MemoryStore struct {
	mu     sync.RWMutex
	latest []byte
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements assistant.SnapshotStore.
func (s *MemoryStore) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	s.latest = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

// Latest implements assistant.SnapshotStore.
func (s *MemoryStore) Latest(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, false, nil
	}
	return append([]byte(nil), s.latest...), true, nil
}

var _ assistant.SnapshotStore = (*MemoryStore)(nil)
