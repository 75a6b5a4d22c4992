package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process store. Entries live until cleared, or until
// the optional TTL elapses.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	context   Context
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL expires pending contexts after ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *MemoryStore) Get(_ context.Context, senderID string) (Context, error) {
	key, err := senderKey(senderID)
	if err != nil {
		return Context{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return idle(key), nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return idle(key), nil
	}

	result := entry.context
	result.Aux = cloneAux(entry.context.Aux)
	return result, nil
}

func (s *MemoryStore) SetPending(_ context.Context, senderID string, pending Pending, aux map[string]string) error {
	key, err := senderKey(senderID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pending == PendingNone {
		delete(s.entries, key)
		return nil
	}

	entry := memoryEntry{context: Context{SenderID: key, Pending: pending, Aux: cloneAux(aux)}}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, senderID string) error {
	key, err := senderKey(senderID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored contexts, including expired ones not yet read.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
