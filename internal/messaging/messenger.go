// Package messaging broadcasts change notifications between nodes and feeds
// the ones received back into the local handlers exactly once per id.
package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/model"
)

var ErrClosed = errors.New("messaging: closed")

// Outgoing is a message already packed into its wire form.
type Outgoing struct {
	ID      uuid.UUID
	Type    model.MessageType
	Encoded string
}

// Messenger moves encoded messages over one transport. Send may block on I/O;
// the Service calls it off the producer's goroutine.
type Messenger interface {
	Send(ctx context.Context, msg Outgoing) error
	Close() error
}

// Consumer accepts messages received by a transport. Both methods report
// false for messages already seen, which tells multi-path transports not to
// forward them again.
type Consumer interface {
	Consume(ctx context.Context, msg model.Message) bool
	ConsumeEncoded(ctx context.Context, encoded string) bool
}

// Provider builds a started Messenger bound to consumer.
type Provider interface {
	Name() string
	Obtain(ctx context.Context, consumer Consumer) (Messenger, error)
}

// Handler reacts to decoded messages.
type Handler interface {
	OnUpdate(ctx context.Context, msg *model.UpdateMessage)
	OnUserUpdate(ctx context.Context, msg *model.UserUpdateMessage)
	OnCustom(ctx context.Context, msg *model.CustomMessage)
}

// Interface guards
var (
	_ Provider  = NoopProvider{}
	_ Messenger = noopMessenger{}
)

// NoopProvider backs the "none" messaging service.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "None" }

func (NoopProvider) Obtain(context.Context, Consumer) (Messenger, error) {
	return noopMessenger{}, nil
}

type noopMessenger struct{}

func (noopMessenger) Send(context.Context, Outgoing) error { return nil }
func (noopMessenger) Close() error                         { return nil }
