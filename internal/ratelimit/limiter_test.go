package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/safelink/internal/ratelimit"
	"github.com/serroba/safelink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock starting at a window boundary.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_040, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newLimiter(clock *fakeClock, scope ratelimit.Scope, max int64) *ratelimit.FixedWindowLimiter {
	policy := &ratelimit.Policy{}
	policy.Set(scope, ratelimit.LimitConfig{Window: time.Minute, Max: max})

	return ratelimit.NewFixedWindowLimiter(store.NewRateLimitMemoryStore(), policy, ratelimit.WithClock(clock.Now))
}

func TestFixedWindowLimiter(t *testing.T) {
	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := newLimiter(newFakeClock(), ratelimit.ScopeCreate, 5)

		for range 5 {
			err := limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate)

			require.NoError(t, err)
		}
	})

	t.Run("rejects the 41st create in a window", func(t *testing.T) {
		limiter := newLimiter(newFakeClock(), ratelimit.ScopeCreate, 40)

		for range 40 {
			require.NoError(t, limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate))
		}

		err := limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate)

		require.ErrorIs(t, err, ratelimit.ErrRateLimited)

		var exceeded *ratelimit.LimitExceeded
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, ratelimit.ScopeCreate, exceeded.Scope)
		assert.Equal(t, int64(41), exceeded.Count)
		assert.Equal(t, int64(40), exceeded.Config.Max)
		assert.Equal(t, time.Minute, exceeded.RetryAfter)
	})

	t.Run("admits again after the window rolls over", func(t *testing.T) {
		clock := newFakeClock()
		limiter := newLimiter(clock, ratelimit.ScopeCreate, 2)

		for range 2 {
			require.NoError(t, limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate))
		}

		clock.Advance(30 * time.Second)

		err := limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate)
		require.ErrorIs(t, err, ratelimit.ErrRateLimited)

		var exceeded *ratelimit.LimitExceeded
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, 30*time.Second, exceeded.RetryAfter)

		clock.Advance(30 * time.Second)

		require.NoError(t, limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate))
	})

	t.Run("tracks identities independently", func(t *testing.T) {
		limiter := newLimiter(newFakeClock(), ratelimit.ScopeResolve, 2)

		for range 2 {
			require.NoError(t, limiter.Admit(context.Background(), "10.1.1.1", ratelimit.ScopeResolve))
		}

		err := limiter.Admit(context.Background(), "10.1.1.1", ratelimit.ScopeResolve)
		require.ErrorIs(t, err, ratelimit.ErrRateLimited, "first identity should be rate limited")

		err = limiter.Admit(context.Background(), "10.2.2.2", ratelimit.ScopeResolve)
		require.NoError(t, err, "second identity should still be allowed")
	})

	t.Run("tracks scopes independently", func(t *testing.T) {
		policy := ratelimit.DefaultPolicy()
		policy.Set(ratelimit.ScopeCreate, ratelimit.LimitConfig{Window: time.Minute, Max: 1})
		policy.Set(ratelimit.ScopeResolve, ratelimit.LimitConfig{Window: time.Minute, Max: 1})
		limiter := ratelimit.NewFixedWindowLimiter(store.NewRateLimitMemoryStore(), policy,
			ratelimit.WithClock(newFakeClock().Now))

		require.NoError(t, limiter.Admit(context.Background(), "same", ratelimit.ScopeCreate))
		require.ErrorIs(t, limiter.Admit(context.Background(), "same", ratelimit.ScopeCreate), ratelimit.ErrRateLimited)

		require.NoError(t, limiter.Admit(context.Background(), "same", ratelimit.ScopeResolve))
	})

	t.Run("admits scopes without limits", func(t *testing.T) {
		limiter := newLimiter(newFakeClock(), ratelimit.ScopeCreate, 1)

		for range 10 {
			require.NoError(t, limiter.Admit(context.Background(), "ip", ratelimit.ScopeGlobal))
		}
	})

	t.Run("enforces every layered window", func(t *testing.T) {
		clock := newFakeClock()
		policy := &ratelimit.Policy{}
		policy.Set(ratelimit.ScopeLogin,
			ratelimit.LimitConfig{Window: time.Minute, Max: 5},
			ratelimit.LimitConfig{Window: time.Hour, Max: 6},
		)
		limiter := ratelimit.NewFixedWindowLimiter(store.NewRateLimitMemoryStore(), policy, ratelimit.WithClock(clock.Now))

		for range 5 {
			require.NoError(t, limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin))
		}

		clock.Advance(time.Minute)

		require.NoError(t, limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin))

		err := limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin)

		var exceeded *ratelimit.LimitExceeded
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, time.Hour, exceeded.Config.Window)
	})

	t.Run("reset clears the current window", func(t *testing.T) {
		limiter := newLimiter(newFakeClock(), ratelimit.ScopeLogin, 1)

		require.NoError(t, limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin))
		require.ErrorIs(t, limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin), ratelimit.ErrRateLimited)

		require.NoError(t, limiter.Reset(context.Background(), "a@example.com", ratelimit.ScopeLogin))

		require.NoError(t, limiter.Admit(context.Background(), "a@example.com", ratelimit.ScopeLogin))
	})
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingCounter) Reset(context.Context, ...string) error {
	return errors.New("connection refused")
}

func TestFixedWindowLimiter_FailsClosed(t *testing.T) {
	limiter := ratelimit.NewFixedWindowLimiter(failingCounter{}, ratelimit.DefaultPolicy())

	err := limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ratelimit.ErrRateLimited)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFixedWindowLimiter_ConcurrentCallersShareOneCounter(t *testing.T) {
	limiter := newLimiter(newFakeClock(), ratelimit.ScopeCreate, 40)

	var (
		admitted atomic.Int64
		rejected atomic.Int64
		wg       sync.WaitGroup
	)

	for range 100 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := limiter.Admit(context.Background(), "owner-1", ratelimit.ScopeCreate)
			if err == nil {
				admitted.Add(1)
			} else if errors.Is(err, ratelimit.ErrRateLimited) {
				rejected.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(40), admitted.Load())
	assert.Equal(t, int64(60), rejected.Load())
}

func TestPolicy_Set(t *testing.T) {
	t.Run("drops invalid limits and removes empty scopes", func(t *testing.T) {
		policy := ratelimit.DefaultPolicy()

		policy.Set(ratelimit.ScopeLogin, ratelimit.LimitConfig{Window: 0, Max: 5})

		_, ok := policy.Limits[ratelimit.ScopeLogin]
		assert.False(t, ok)
	})

	t.Run("default policy matches documented limits", func(t *testing.T) {
		policy := ratelimit.DefaultPolicy()

		assert.Equal(t, []ratelimit.LimitConfig{{Window: time.Minute, Max: 40}}, policy.Limits[ratelimit.ScopeCreate])
		assert.Equal(t, []ratelimit.LimitConfig{{Window: time.Minute, Max: 30}}, policy.Limits[ratelimit.ScopeResolve])
		assert.Equal(t, []ratelimit.LimitConfig{{Window: time.Minute, Max: 5}}, policy.Limits[ratelimit.ScopeLogin])
	})
}
