package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps fixed-window counters in a mutex-guarded map. Counters are created
// lazily and restarted when their window has elapsed.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]window
}

// NewMemoryStore returns an empty counter table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]window)}
}

func (s *MemoryStore) Increment(_ context.Context, key string, size time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(size)}
	}
	w.count++
	s.windows[key] = w
	return w.count, w.resetAt, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.windows = make(map[string]window)
	s.mu.Unlock()
	return nil
}

// Prune drops windows that elapsed before now.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
