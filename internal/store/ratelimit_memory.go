package store

import (
	"context"
	"sync"
	"time"
)

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Counter.
// It is only correct for a single service instance.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	now      func() time.Time
	ops      int
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		counters: make(map[string]*counterEntry),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	s.ops++
	if s.ops%1024 == 0 {
		s.pruneLocked(now)
	}

	entry, ok := s.counters[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &counterEntry{expiresAt: now.Add(ttl)}
		s.counters[key] = entry
	}

	entry.count++

	return entry.count, nil
}

func (s *RateLimitMemoryStore) Reset(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.counters, key)
	}

	return nil
}

// pruneLocked drops expired counters. Callers must hold s.mu.
func (s *RateLimitMemoryStore) pruneLocked(now time.Time) {
	for key, entry := range s.counters {
		if !now.Before(entry.expiresAt) {
			delete(s.counters, key)
		}
	}
}

// Len returns the number of live counters.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())

	return len(s.counters)
}
