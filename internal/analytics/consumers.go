package analytics

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/safelink/internal/messaging"
	"go.uber.org/zap"
)

// HandlerTimeout bounds a single store write.
const HandlerTimeout = 10 * time.Second

// RegisterConsumers adds one consumer per topic to group, each saving into store.
func RegisterConsumers(group *messaging.ConsumerGroup, subscriber message.Subscriber, store Store, logger *zap.Logger) {
	timeout := messaging.WithHandlerTimeout(HandlerTimeout)

	group.Add(
		messaging.NewConsumer(subscriber, TopicLinkCreated, store.SaveLinkCreated, logger, timeout),
		messaging.NewConsumer(subscriber, TopicLinkResolved, store.SaveLinkResolved, logger, timeout),
		messaging.NewConsumer(subscriber, TopicLinkRejected, store.SaveLinkRejected, logger, timeout),
	)
}
