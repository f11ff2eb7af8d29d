package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/safelink/internal/messaging"
)

// Publishers holds one typed publish function per topic.
type Publishers struct {
	Created  messaging.Publish[LinkCreatedEvent]
	Resolved messaging.Publish[LinkResolvedEvent]
	Rejected messaging.Publish[LinkRejectedEvent]
}

// NewPublishers binds every topic to publisher.
func NewPublishers(publisher message.Publisher) *Publishers {
	return &Publishers{
		Created:  messaging.NewPublishFunc[LinkCreatedEvent](publisher, TopicLinkCreated),
		Resolved: messaging.NewPublishFunc[LinkResolvedEvent](publisher, TopicLinkResolved),
		Rejected: messaging.NewPublishFunc[LinkRejectedEvent](publisher, TopicLinkRejected),
	}
}
