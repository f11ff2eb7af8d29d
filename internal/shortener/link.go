package shortener

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no visible link matches a code.
	ErrNotFound = errors.New("short link not found")
	// ErrUnavailable marks failures of a backing store; callers should fail closed.
	ErrUnavailable = errors.New("dependency unavailable")
	// ErrInvalidID is returned when encoding a non-positive identifier.
	ErrInvalidID = errors.New("invalid link id")
	// ErrCodeConflict is returned when a code is already attached to another link.
	ErrCodeConflict = errors.New("short code already in use")
	// ErrMissingOwner is returned when a create has no authenticated owner.
	ErrMissingOwner = errors.New("owner is required")
)

// Code is the public short code of a link. Codes are case-sensitive.
type Code string

// ShortLink is a stored, validated URL.
// A link is created without a code and becomes visible once its code is attached.
type ShortLink struct {
	ID          int64
	OwnerID     string
	OriginalURL string
	Code        Code
	CreatedAt   time.Time
}

// Visible reports whether the link has completed creation.
func (l *ShortLink) Visible() bool {
	return l.Code != ""
}
