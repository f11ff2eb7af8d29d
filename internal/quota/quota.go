package quota

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLimit is the number of links an owner may create.
const DefaultLimit = 100

// ErrQuotaExceeded is matched by every *ExceededError.
var ErrQuotaExceeded = errors.New("link quota exceeded")

// ExceededError reports an owner that already holds Limit links.
type ExceededError struct {
	OwnerID string
	Count   int64
	Limit   int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("link limit reached: %d/%d links", e.Count, e.Limit)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Check admits a new link when current is below limit. A limit <= 0 disables the check.
func Check(ownerID string, current, limit int64) error {
	if limit <= 0 || current < limit {
		return nil
	}

	return &ExceededError{OwnerID: ownerID, Count: current, Limit: limit}
}

// Counter counts the links an owner holds.
type Counter interface {
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

// Enforcer applies a per-owner limit against a Counter.
// The count and the insert that follows are not atomic, so concurrent creates
// by the same owner can exceed the limit by the number of in-flight requests.
type Enforcer struct {
	counter Counter
	limit   int64
}

// NewEnforcer creates an Enforcer. A limit <= 0 disables the check.
func NewEnforcer(counter Counter, limit int64) *Enforcer {
	return &Enforcer{counter: counter, limit: limit}
}

// Limit returns the configured limit.
func (e *Enforcer) Limit() int64 {
	return e.limit
}

// Admit returns an *ExceededError when the owner is at the limit, or a wrapped
// counter error when the count could not be read.
func (e *Enforcer) Admit(ctx context.Context, ownerID string) error {
	if e.limit <= 0 {
		return nil
	}

	count, err := e.counter.CountByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("count links: %w", err)
	}

	return Check(ownerID, count, e.limit)
}
