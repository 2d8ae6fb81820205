package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore is the fixed-window counter backend. The in-memory store
// serves single-instance deployments; the Redis store shares counters
// between instances. This is the extension point for multi-instance
// deployments — swapping stores does not change limiter semantics within
// one process, but cross-instance consistency is only as strong as the
// backend's increment atomicity.
type CounterStore interface {
	// Incr adds one to the counter for key in its current fixed window
	// and returns the new count. A fresh window starts at the first
	// increment after the previous window lapsed.
	Incr(ctx context.Context, key string, window time.Duration) (int, error)

	// Peek returns the current count for key without consuming quota.
	Peek(ctx context.Context, key string, window time.Duration) (int, error)
}

type windowCounter struct {
	windowStart time.Time
	count       int
}

// MemoryStore is a mutex-guarded in-process counter store.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter

	// now is replaceable in tests
	now func() time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter, exists := s.counters[key]
	if !exists || now.Sub(counter.windowStart) >= window {
		counter = &windowCounter{windowStart: now}
		s.counters[key] = counter
	}

	counter.count++
	return counter.count, nil
}

// Peek implements CounterStore.
func (s *MemoryStore) Peek(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, exists := s.counters[key]
	if !exists || s.now().Sub(counter.windowStart) >= window {
		return 0, nil
	}
	return counter.count, nil
}

// Sweep drops counters whose window lapsed longer than maxAge ago. Driven
// by the background scheduler; lapsed counters are also replaced lazily on
// the request path, so the sweep only bounds memory.
func (s *MemoryStore) Sweep(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	for key, counter := range s.counters {
		if counter.windowStart.Before(cutoff) {
			delete(s.counters, key)
		}
	}
}
