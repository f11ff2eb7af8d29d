package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/safelink/internal/auth"
)

const redisSessionPrefix = "session:"

// SessionRedisStore is a Redis implementation of auth.SessionStore.
type SessionRedisStore struct {
	client *redis.Client
}

// NewSessionRedisStore creates a new Redis-backed session store.
func NewSessionRedisStore(client *redis.Client) *SessionRedisStore {
	return &SessionRedisStore{client: client}
}

func (r *SessionRedisStore) Save(ctx context.Context, token, ownerID string, ttl time.Duration) error {
	return r.client.Set(ctx, redisSessionPrefix+token, ownerID, ttl).Err()
}

func (r *SessionRedisStore) Get(ctx context.Context, token string) (string, error) {
	owner, err := r.client.Get(ctx, redisSessionPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrSessionNotFound
	}

	return owner, err
}

// Compile-time check.
var _ auth.SessionStore = (*SessionRedisStore)(nil)
