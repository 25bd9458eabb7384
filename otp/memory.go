package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a mutex-guarded map.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, record Record) error {
	s.mu.Lock()
	s.records[record.UserID] = record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Record, error) {
	s.mu.Lock()
	record, ok := s.records[userID]
	s.mu.Unlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, record Record, lockDuration time.Duration) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[record.UserID]; ok && current.IsLocked(record.CreatedAt, lockDuration) {
		return current, ErrLocked
	}
	s.records[record.UserID] = record
	return record, nil
}

func (s *MemoryStore) Attempt(_ context.Context, userID, code string, now time.Time, maxAttempts int, lockDuration time.Duration) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return Attempt{}, ErrNotFound
	}

	attempt, consume := evaluate(record, code, now, maxAttempts, lockDuration)
	switch {
	case attempt.Refused:
	case consume:
		delete(s.records, userID)
	default:
		s.records[userID] = attempt.Record
	}
	return attempt, nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]Record)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
