package store

import (
	"context"

	"github.com/serroba/safelink/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveLinkCreated(_ context.Context, event *analytics.LinkCreatedEvent) error {
	n.logger.Info("link created event received",
		zap.String("code", event.Code),
		zap.String("owner", event.OwnerID),
		zap.String("originalUrl", event.OriginalURL),
		zap.Time("createdAt", event.CreatedAt),
	)

	return nil
}

func (n *Noop) SaveLinkResolved(_ context.Context, event *analytics.LinkResolvedEvent) error {
	n.logger.Info("link resolved event received",
		zap.String("code", event.Code),
		zap.Time("resolvedAt", event.ResolvedAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

func (n *Noop) SaveLinkRejected(_ context.Context, event *analytics.LinkRejectedEvent) error {
	n.logger.Warn("link rejected event received",
		zap.String("stage", event.Stage),
		zap.String("reason", event.Reason),
		zap.String("owner", event.OwnerID),
		zap.String("clientIp", event.ClientIP),
	)

	return nil
}
