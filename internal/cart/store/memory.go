package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryCartStore implements CartStore with a mutex-guarded map. It backs
// the unit test suites; production uses RedisCartStore.
type InMemoryCartStore struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	counters map[string]int64

	// now is swappable so tests can drive expiry without sleeping.
	now func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCartStore creates an empty in-memory store.
func NewInMemoryCartStore() *InMemoryCartStore {
	return &InMemoryCartStore{
		entries:  make(map[string]memoryEntry),
		counters: make(map[string]int64),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source. Test hook only.
func (s *InMemoryCartStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemoryCartStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (s *InMemoryCartStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = memoryEntry{value: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryCartStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return false, nil
	}
	delete(s.entries, key)
	return ok, nil
}

func (s *InMemoryCartStore) Increment(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++
	return s.counters[key], nil
}
