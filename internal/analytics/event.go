package analytics

import "time"

const (
	TopicLinkCreated  = "link.created"
	TopicLinkResolved = "link.resolved"
	TopicLinkRejected = "link.rejected"
)

// LinkCreatedEvent is emitted after a link becomes visible.
type LinkCreatedEvent struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	OwnerID     string    `json:"ownerId"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
	RequestID   string    `json:"requestId"`
}

// LinkResolvedEvent is emitted for every successful resolve.
type LinkResolvedEvent struct {
	Code       string    `json:"code"`
	ResolvedAt time.Time `json:"resolvedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
	RequestID  string    `json:"requestId"`
}

// LinkRejectedEvent is emitted when admission turns a request away.
// Stage is one of rate_limit, quota or validation.
type LinkRejectedEvent struct {
	Stage      string    `json:"stage"`
	Reason     string    `json:"reason"`
	OwnerID    string    `json:"ownerId,omitempty"`
	RawURL     string    `json:"rawUrl,omitempty"`
	RejectedAt time.Time `json:"rejectedAt"`
	ClientIP   string    `json:"clientIp"`
	RequestID  string    `json:"requestId"`
}
