package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is matched by every *LimitExceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitExceeded contains information about which limit was exceeded.
type LimitExceeded struct {
	Scope      Scope
	Config     LimitConfig
	Count      int64
	RetryAfter time.Duration
}

func (e *LimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s scope, %d/%d requests in %s",
		e.Scope, e.Count, e.Config.Max, e.Config.Window)
}

func (e *LimitExceeded) Is(target error) bool {
	return target == ErrRateLimited
}

// Limiter admits or rejects a request for an identity within a scope.
type Limiter interface {
	Admit(ctx context.Context, identity string, scope Scope) error
}

// Option configures a FixedWindowLimiter.
type Option func(*FixedWindowLimiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindowLimiter) {
		l.now = now
	}
}

// FixedWindowLimiter counts requests per (identity, scope) in fixed windows
// aligned to the Unix epoch. The counter key embeds the window index, so a new
// window always starts from zero.
type FixedWindowLimiter struct {
	store  Counter
	policy *Policy
	now    func() time.Time
}

// NewFixedWindowLimiter creates a limiter enforcing policy against store.
func NewFixedWindowLimiter(store Counter, policy *Policy, opts ...Option) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:  store,
		policy: policy,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Admit checks every limit configured for scope. Scopes without limits are admitted.
// It returns a *LimitExceeded when a limit is hit and a wrapped store error when
// the counter store fails; callers must reject in both cases.
func (l *FixedWindowLimiter) Admit(ctx context.Context, identity string, scope Scope) error {
	for _, limit := range l.policy.Limits[scope] {
		if err := l.Allow(ctx, identity, scope, limit); err != nil {
			return err
		}
	}

	return nil
}

// Allow records one request against a single limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, identity string, scope Scope, limit LimitConfig) error {
	if limit.Window <= 0 {
		return fmt.Errorf("rate limit %s: window must be positive", scope)
	}

	now := l.now()
	index, end := windowBounds(now, limit.Window)

	count, err := l.store.Increment(ctx, buildKey(identity, scope, limit.Window, index), end.Sub(now))
	if err != nil {
		return fmt.Errorf("rate limit store: %w", err)
	}

	if count > limit.Max {
		return &LimitExceeded{
			Scope:      scope,
			Config:     limit,
			Count:      count,
			RetryAfter: end.Sub(now),
		}
	}

	return nil
}

// Reset clears the current window of every limit configured for scope.
func (l *FixedWindowLimiter) Reset(ctx context.Context, identity string, scope Scope) error {
	limits := l.policy.Limits[scope]
	if len(limits) == 0 {
		return nil
	}

	now := l.now()
	keys := make([]string, 0, len(limits))

	for _, limit := range limits {
		index, _ := windowBounds(now, limit.Window)
		keys = append(keys, buildKey(identity, scope, limit.Window, index))
	}

	return l.store.Reset(ctx, keys...)
}

// windowBounds returns the index of the window containing now and the instant it ends.
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	size := window.Nanoseconds()
	index := now.UnixNano() / size
	end := time.Unix(0, (index+1)*size)

	return index, end
}

// buildKey creates a unique counter key for the identity, scope, and window combination.
func buildKey(identity string, scope Scope, window time.Duration, index int64) string {
	if identity == "" {
		identity = "unknown"
	}

	return fmt.Sprintf("ratelimit:%s:%s:%d:%d", scope, identity, window.Milliseconds(), index)
}
