package askstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
)

type cachedAnswer struct {
	payload   assistant.CachedAnswer
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the answer store for
// tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	answers  map[string]cachedAnswer
	trending map[string]int64
	displays map[string]string
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		answers:  make(map[string]cachedAnswer),
		trending: make(map[string]int64),
		displays: make(map[string]string),
	}
}

// GetAnswer implements assistant.AnswerStore.
func (s *MemoryStore) GetAnswer(_ context.Context, key string) (assistant.CachedAnswer, bool, error) {
	if key == "" {
		return assistant.CachedAnswer{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.answers[key]
	s.mu.RUnlock()
	if !ok {
		return assistant.CachedAnswer{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.answers, key)
		s.mu.Unlock()
		return assistant.CachedAnswer{}, false, nil
	}
	return record.payload, true, nil
}

// SaveAnswer caches the answer with optional TTL.
func (s *MemoryStore) SaveAnswer(_ context.Context, key string, record assistant.CachedAnswer, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.answers[key] = cachedAnswer{payload: record, expiresAt: exp}
	return nil
}

// IncrementQuery implements assistant.AnswerStore.
func (s *MemoryStore) IncrementQuery(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[canonical]++
	if display != "" {
		if _, ok := s.displays[canonical]; !ok {
			s.displays[canonical] = display
		}
	}
	return nil
}

// TopQueries implements assistant.AnswerStore.
func (s *MemoryStore) TopQueries(_ context.Context, limit int) ([]assistant.TrendingQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]assistant.TrendingQuery, 0, len(s.trending))
	for canonical, count := range s.trending {
		display := s.displays[canonical]
		if display == "" {
			display = canonical
		}
		out = append(out, assistant.TrendingQuery{Query: display, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func hasExpired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && time.Now().After(expiresAt)
}

var _ assistant.AnswerStore = (*MemoryStore)(nil)
