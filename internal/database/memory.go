package database

import (
	"context"
	"sync"
	"time"

	"report-generator/internal/models"
)

// MemoryStore keeps idempotency keys in process memory
type MemoryStore struct {
	entries map[string]*models.IdempotencyEntry
	ttl     time.Duration
	now     func() time.Time
	mutex   sync.Mutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*models.IdempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, key string) (*models.IdempotencyEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.expireLocked(now)

	if entry, exists := s.entries[key]; exists {
		cp := *entry
		cp.Body = append([]byte(nil), entry.Body...)
		return &cp, nil
	}
	entry := newEntry(key, now, s.ttl)
	s.entries[key] = &entry
	return nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, status int, body []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return ErrKeyNotFound
	}
	entry.Completed = true
	entry.Status = status
	entry.Body = append([]byte(nil), body...)
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// expireLocked drops entries past their expiry
func (s *MemoryStore) expireLocked(now time.Time) {
	for key, entry := range s.entries {
		if !entry.ExpiresAt.After(now) {
			delete(s.entries, key)
		}
	}
}
