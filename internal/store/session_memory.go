package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/safelink/internal/auth"
)

type sessionEntry struct {
	ownerID   string
	expiresAt time.Time
}

// SessionMemoryStore is an in-memory implementation of auth.SessionStore.
type SessionMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

// NewSessionMemoryStore creates a new in-memory session store.
func NewSessionMemoryStore() *SessionMemoryStore {
	return &SessionMemoryStore{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

func (s *SessionMemoryStore) Save(_ context.Context, token, ownerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for t, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, t)
		}
	}

	s.sessions[token] = sessionEntry{ownerID: ownerID, expiresAt: now.Add(ttl)}

	return nil
}

func (s *SessionMemoryStore) Get(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[token]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", auth.ErrSessionNotFound
	}

	return entry.ownerID, nil
}

// Compile-time check.
var _ auth.SessionStore = (*SessionMemoryStore)(nil)
