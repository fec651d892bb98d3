package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
)

var ErrEmptyChannel = errors.New("service: channel is required")

// [DELIVERY_SERVICE] entry point for stream transports (websocket, long-poll)
type Deliverer interface {
	Subscribe(ctx context.Context, channel string) (registry.Connector, error)
	Unsubscribe(channel string, connID uuid.UUID)
}

type DeliveryService struct {
	hub        registry.Hubber
	serverID   string
	bufferSize int
}

func NewDeliveryService(hub registry.Hubber, serverID string) *DeliveryService {
	return &DeliveryService{hub: hub, serverID: serverID, bufferSize: 256}
}

// Subscribe attaches a new connector to the channel; registry.AllChannels
// receives every custom message. The first frame is a Connected event.
func (s *DeliveryService) Subscribe(ctx context.Context, channel string) (registry.Connector, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	conn := registry.NewConnector(ctx, channel, s.bufferSize)

	hello := event.NewSystemEvent(channel, event.Connected, event.PriorityHigh, &event.ConnectedPayload{
		ConnectionID: conn.GetID().String(),
		Channel:      channel,
		ServerID:     s.serverID,
	})
	conn.Send(hello, time.Second)

	s.hub.Register(conn)
	return conn, nil
}

// Unsubscribe detaches and closes the connector.
func (s *DeliveryService) Unsubscribe(channel string, connID uuid.UUID) {
	s.hub.Unregister(channel, connID)
}
