package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/safelink/internal/analytics"
	"github.com/serroba/safelink/internal/analytics/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewNoop(t *testing.T) {
	logger := zap.NewNop()
	noop := store.NewNoop(logger)

	assert.NotNil(t, noop)
}

func TestNoop_SaveLinkCreated(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	noop := store.NewNoop(zap.New(core))

	event := &analytics.LinkCreatedEvent{
		Code:        "abc123",
		OwnerID:     "owner-1",
		OriginalURL: "https://example.com",
		CreatedAt:   time.Now(),
	}

	err := noop.SaveLinkCreated(context.Background(), event)

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc123", logs.All()[0].ContextMap()["code"])
}

func TestNoop_SaveLinkResolved(t *testing.T) {
	noop := store.NewNoop(zap.NewNop())

	event := &analytics.LinkResolvedEvent{
		Code:       "abc123",
		ResolvedAt: time.Now(),
		ClientIP:   "203.0.113.9",
		UserAgent:  "TestAgent/1.0",
		Referrer:   "https://referrer.com",
	}

	err := noop.SaveLinkResolved(context.Background(), event)

	require.NoError(t, err)
}

func TestNoop_SaveLinkRejected(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	noop := store.NewNoop(zap.New(core))

	event := &analytics.LinkRejectedEvent{
		Stage:      "validation",
		Reason:     "resolved_to_blocked_address",
		OwnerID:    "owner-1",
		RejectedAt: time.Now(),
	}

	err := noop.SaveLinkRejected(context.Background(), event)

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}
