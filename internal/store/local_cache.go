package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/serroba/safelink/internal/shortener"
)

// LocalCacheRepository keeps recently resolved links in process memory in
// front of another Repository. Only visible links are cached.
type LocalCacheRepository struct {
	shortener.Repository

	cache *ristretto.Cache
	ttl   time.Duration
}

// NewLocalCacheRepository creates a ristretto-backed decorator holding up to maxItems links.
func NewLocalCacheRepository(store shortener.Repository, maxItems int64, ttl time.Duration) (*LocalCacheRepository, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("local cache size must be positive, got %d", maxItems)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init local cache: %w", err)
	}

	return &LocalCacheRepository{
		Repository: store,
		cache:      cache,
		ttl:        ttl,
	}, nil
}

func (l *LocalCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	if v, ok := l.cache.Get(string(code)); ok {
		link := v.(shortener.ShortLink)

		return &link, nil
	}

	link, err := l.Repository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Cost 1 bounds the cache by entry count.
	l.cache.SetWithTTL(string(code), *link, 1, l.ttl)

	return link, nil
}

// Wait blocks until buffered writes are applied.
func (l *LocalCacheRepository) Wait() {
	l.cache.Wait()
}

// Shutdown releases the cache.
func (l *LocalCacheRepository) Shutdown() error {
	l.cache.Close()

	return nil
}

// Compile-time check.
var _ shortener.Repository = (*LocalCacheRepository)(nil)
