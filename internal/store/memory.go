package store

import (
	"context"
	"sort"
	"sync"

	"github.com/serroba/safelink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	links  map[int64]*shortener.ShortLink // id -> link
	codes  map[shortener.Code]int64       // code -> id
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[int64]*shortener.ShortLink),
		codes: make(map[shortener.Code]int64),
	}
}

func (m *MemoryStore) Insert(_ context.Context, link *shortener.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++

	stored := *link
	stored.ID = m.nextID
	stored.Code = ""
	m.links[stored.ID] = &stored

	link.ID = stored.ID

	return nil
}

func (m *MemoryStore) AttachCode(_ context.Context, id int64, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return shortener.ErrNotFound
	}

	if owner, taken := m.codes[code]; taken && owner != id {
		return shortener.ErrCodeConflict
	}

	if link.Code != "" && link.Code != code {
		return shortener.ErrCodeConflict
	}

	link.Code = code
	m.codes[code] = id

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if link, ok := m.links[id]; ok {
		delete(m.codes, link.Code)
		delete(m.links, id)
	}

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := *m.links[id]

	return &link, nil
}

func (m *MemoryStore) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64

	for _, link := range m.links {
		if link.OwnerID == ownerID {
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string, limit int) ([]*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var links []*shortener.ShortLink

	for _, link := range m.links {
		if link.OwnerID == ownerID && link.Visible() {
			l := *link
			links = append(links, &l)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].ID > links[j].ID
	})

	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}

	return links, nil
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
