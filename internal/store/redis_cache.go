package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/safelink/internal/shortener"
	"golang.org/x/sync/singleflight"
)

const (
	redisLinkPrefix = "link:"
	notFoundField   = "missing"
	notFoundTTL     = 10 * time.Second
)

// cacheMissScript records a miss only when nothing is cached for the key, so a
// lookup that started before AttachCode cannot hide the link it attached.
var cacheMissScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("HSET", KEYS[1], ARGV[1], 1)
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisCacheRepository wraps a Repository with Redis caching for code lookups.
// Links never change once visible, so hits are served without revalidation.
// Misses are cached briefly and overwritten when a code is attached.
type RedisCacheRepository struct {
	shortener.Repository

	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		Repository: store,
		client:     client,
		ttl:        ttl,
	}
}

// AttachCode attaches the code in the underlying store and replaces any cached
// miss for it with the link.
func (r *RedisCacheRepository) AttachCode(ctx context.Context, id int64, code shortener.Code) error {
	if err := r.Repository.AttachCode(ctx, id, code); err != nil {
		return err
	}

	link, err := r.Repository.GetByCode(ctx, code)
	if err != nil {
		_ = r.client.Del(ctx, redisLinkPrefix+string(code)).Err()

		return nil
	}

	r.cacheLink(ctx, link)

	return nil
}

// GetByCode checks the cache first. Concurrent misses for the same code share one store read.
func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	if link, err := r.getFromCache(ctx, code); err == nil || errors.Is(err, shortener.ErrNotFound) {
		return link, err
	}

	// The load is shared by every waiter, so one caller cancelling must not fail the others.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := r.group.Do(string(code), func() (any, error) {
		link, err := r.Repository.GetByCode(loadCtx, code)
		if errors.Is(err, shortener.ErrNotFound) {
			r.cacheMiss(loadCtx, code)
		}

		if err != nil {
			return nil, err
		}

		r.cacheLink(loadCtx, link)

		return link, nil
	})
	if err != nil {
		return nil, err
	}

	link := *v.(*shortener.ShortLink)

	return &link, nil
}

// errCacheMiss means the key is absent and the store must be consulted.
var errCacheMiss = errors.New("cache miss")

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	result, err := r.client.HGetAll(ctx, redisLinkPrefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, errCacheMiss
	}

	id, err := strconv.ParseInt(result["id"], 10, 64)
	if err != nil {
		if _, ok := result[notFoundField]; ok {
			return nil, shortener.ErrNotFound
		}

		return nil, errCacheMiss
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &shortener.ShortLink{
		ID:          id,
		OwnerID:     result["owner_id"],
		OriginalURL: result["original_url"],
		Code:        shortener.Code(result["code"]),
		CreatedAt:   createdAt,
	}, nil
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *shortener.ShortLink) {
	pipe := r.client.TxPipeline()
	key := redisLinkPrefix + string(link.Code)

	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":           link.ID,
		"owner_id":     link.OwnerID,
		"original_url": link.OriginalURL,
		"code":         string(link.Code),
		"created_at":   link.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

func (r *RedisCacheRepository) cacheMiss(ctx context.Context, code shortener.Code) {
	key := redisLinkPrefix + string(code)

	_ = cacheMissScript.Run(ctx, r.client, []string{key}, notFoundField, notFoundTTL.Milliseconds()).Err()
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
