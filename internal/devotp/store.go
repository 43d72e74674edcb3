// Package devotp keeps the last plain verification code per email so developers can complete
// flows without a mailbox (GET /dev/verification/:email). Never wired in production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Entry is what the local gateway last sent to an address.
type Entry struct {
	Code      string    `json:"code"`
	Purpose   string    `json:"purpose"`
	Link      string    `json:"link,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store holds the latest Entry per email.
type Store interface {
	// Put replaces the entry for email.
	Put(ctx context.Context, email string, e Entry)
	// Get returns the entry for email if present and not expired.
	Get(ctx context.Context, email string) (Entry, bool)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]Entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]Entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores e for email.
func (s *MemoryStore) Put(ctx context.Context, email string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[email] = e
}

// Get returns the entry for email if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, email string) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.m[email]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if !e.ExpiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, email)
		s.mu.Unlock()
		return Entry{}, false
	}
	return e, true
}
