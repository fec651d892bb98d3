package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/player-sync-service/internal/messaging"
)

const MetadataType = "playersync_type"

// EnvelopeDispatcher publishes encoded messenger envelopes to one topic.
type EnvelopeDispatcher interface {
	Publish(ctx context.Context, out messaging.Outgoing) error
	Publisher() message.Publisher
}

type envelopeDispatcher struct {
	publisher message.Publisher
	topic     string
}

func NewEnvelopeDispatcher(pub message.Publisher, topic string) EnvelopeDispatcher {
	return &envelopeDispatcher{publisher: pub, topic: topic}
}

func (d *envelopeDispatcher) Publish(ctx context.Context, out messaging.Outgoing) error {
	if out.Encoded == "" {
		return fmt.Errorf("envelope dispatcher: cannot publish empty message %s", out.ID)
	}

	// Watermill's own id reuses the envelope id so broker logs line up with ours.
	msg := message.NewMessage(out.ID.String(), []byte(out.Encoded))
	msg.Metadata.Set(MetadataType, string(out.Type))
	msg.SetContext(ctx)

	if err := d.publisher.Publish(d.topic, msg); err != nil {
		return fmt.Errorf("envelope dispatcher: failed to publish to topic %s: %w", d.topic, err)
	}
	return nil
}

func (d *envelopeDispatcher) Publisher() message.Publisher {
	return d.publisher
}
