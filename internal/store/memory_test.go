package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/safelink/internal/shortener"
	"github.com/serroba/safelink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertLink(t *testing.T, s *store.MemoryStore, owner, url string) *shortener.ShortLink {
	t.Helper()

	link := &shortener.ShortLink{OwnerID: owner, OriginalURL: url, CreatedAt: time.Now()}
	require.NoError(t, s.Insert(context.Background(), link))

	return link
}

func TestMemoryStore_Insert(t *testing.T) {
	t.Run("assigns increasing ids", func(t *testing.T) {
		s := store.NewMemoryStore()

		first := insertLink(t, s, "owner-1", "https://example.com/1")
		second := insertLink(t, s, "owner-1", "https://example.com/2")

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("never reuses ids after delete", func(t *testing.T) {
		s := store.NewMemoryStore()

		first := insertLink(t, s, "owner-1", "https://example.com/1")
		require.NoError(t, s.Delete(context.Background(), first.ID))

		second := insertLink(t, s, "owner-1", "https://example.com/2")

		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("pending links are invisible", func(t *testing.T) {
		s := store.NewMemoryStore()
		insertLink(t, s, "owner-1", "https://example.com/1")

		links, err := s.ListByOwner(context.Background(), "owner-1", 0)

		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestMemoryStore_AttachCode(t *testing.T) {
	t.Run("makes the link resolvable", func(t *testing.T) {
		s := store.NewMemoryStore()
		link := insertLink(t, s, "owner-1", "https://example.com")

		require.NoError(t, s.AttachCode(context.Background(), link.ID, "abc123"))

		got, err := s.GetByCode(context.Background(), "abc123")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.OriginalURL)
		assert.Equal(t, link.ID, got.ID)
	})

	t.Run("rejects a code owned by another link", func(t *testing.T) {
		s := store.NewMemoryStore()
		first := insertLink(t, s, "owner-1", "https://example.com/1")
		second := insertLink(t, s, "owner-1", "https://example.com/2")

		require.NoError(t, s.AttachCode(context.Background(), first.ID, "abc123"))

		err := s.AttachCode(context.Background(), second.ID, "abc123")

		assert.ErrorIs(t, err, shortener.ErrCodeConflict)
	})

	t.Run("code is immutable once attached", func(t *testing.T) {
		s := store.NewMemoryStore()
		link := insertLink(t, s, "owner-1", "https://example.com/1")

		require.NoError(t, s.AttachCode(context.Background(), link.ID, "abc123"))

		assert.ErrorIs(t, s.AttachCode(context.Background(), link.ID, "other"), shortener.ErrCodeConflict)
		assert.NoError(t, s.AttachCode(context.Background(), link.ID, "abc123"))
	})

	t.Run("returns ErrNotFound for unknown ids", func(t *testing.T) {
		s := store.NewMemoryStore()

		err := s.AttachCode(context.Background(), 42, "abc123")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_GetByCode(t *testing.T) {
	t.Run("returns ErrNotFound when code does not exist", func(t *testing.T) {
		s := store.NewMemoryStore()

		link, err := s.GetByCode(context.Background(), "notfound")

		assert.Nil(t, link)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("matches codes case-sensitively", func(t *testing.T) {
		s := store.NewMemoryStore()
		link := insertLink(t, s, "owner-1", "https://example.com")
		require.NoError(t, s.AttachCode(context.Background(), link.ID, "AbC123"))

		_, err := s.GetByCode(context.Background(), "abc123")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestMemoryStore_Owners(t *testing.T) {
	s := store.NewMemoryStore()

	for i, url := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		link := insertLink(t, s, "owner-1", url)
		require.NoError(t, s.AttachCode(context.Background(), link.ID, shortener.Code(rune('a'+i))))
	}

	insertLink(t, s, "owner-1", "https://pending.example")
	other := insertLink(t, s, "owner-2", "https://other.example")
	require.NoError(t, s.AttachCode(context.Background(), other.ID, "zzz"))

	t.Run("counts pending links", func(t *testing.T) {
		count, err := s.CountByOwner(context.Background(), "owner-1")

		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("lists visible links newest first", func(t *testing.T) {
		links, err := s.ListByOwner(context.Background(), "owner-1", 0)

		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "https://c.example", links[0].OriginalURL)
		assert.Equal(t, "https://a.example", links[2].OriginalURL)
	})

	t.Run("applies the limit", func(t *testing.T) {
		links, err := s.ListByOwner(context.Background(), "owner-1", 2)

		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	t.Run("does not mix owners", func(t *testing.T) {
		count, err := s.CountByOwner(context.Background(), "owner-2")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
