package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process denylist guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryStore returns an empty denylist.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return ErrEmptyToken
	}
	key := Digest(token)

	s.mu.Lock()
	if current, ok := s.entries[key]; !ok || expiresAt.After(current) {
		s.entries[key] = expiresAt
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	key := Digest(token)

	s.mu.RLock()
	_, ok := s.entries[key]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) Consume(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	key := Digest(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = expiresAt
	return true, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]time.Time)
	s.mu.Unlock()
	return nil
}

// Prune drops entries whose token expired before now and returns how many were removed.
// Entries without a known expiry are kept.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, expiresAt := range s.entries {
		if !expiresAt.IsZero() && expiresAt.Before(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RunPruner prunes expired entries every interval until ctx is done.
func (s *MemoryStore) RunPruner(ctx context.Context, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(now())
		}
	}
}
