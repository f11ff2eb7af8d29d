package shortener

import "context"

// Repository is the durable store of short links.
type Repository interface {
	// Insert stores a new link without a code and sets link.ID to a fresh,
	// never reused identifier.
	Insert(ctx context.Context, link *ShortLink) error
	// AttachCode sets the code of a pending link. It returns ErrCodeConflict
	// when the code is taken and ErrNotFound when the link does not exist.
	AttachCode(ctx context.Context, id int64, code Code) error
	// Delete removes a link. Used to discard rows whose code could not be attached.
	Delete(ctx context.Context, id int64) error
	// GetByCode returns the visible link with exactly this code.
	GetByCode(ctx context.Context, code Code) (*ShortLink, error)
	// CountByOwner counts every link of an owner, including pending ones.
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	// ListByOwner returns the owner's visible links, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*ShortLink, error)
}
