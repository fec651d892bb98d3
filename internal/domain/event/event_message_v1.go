package event

import (
	"time"

	"github.com/webitel/player-sync-service/internal/domain/model"
)

var _ Eventer = (*CustomMessageV1Event)(nil)

// CustomMessageV1Event is raised once per custom message accepted by the
// incoming consumer. The hub routes it by channel id to stream subscribers.
type CustomMessageV1Event struct {
	Message    *model.CustomMessage `json:"message"`
	ReceivedAt int64                `json:"received_at"`
	Cached     any                  `json:"-"` // [INTERNAL] Not for serialization
}

func NewCustomMessageV1Event(msg *model.CustomMessage) *CustomMessageV1Event {
	return &CustomMessageV1Event{
		Message:    msg,
		ReceivedAt: time.Now().UnixMilli(),
	}
}

// GetID is the messenger id, so clients can correlate frames across nodes.
func (e *CustomMessageV1Event) GetID() string              { return e.Message.ID.String() }
func (e *CustomMessageV1Event) GetPayload() any            { return e.Message }
func (e *CustomMessageV1Event) GetChannel() string         { return e.Message.ChannelID }
func (e *CustomMessageV1Event) GetOccurredAt() int64       { return e.ReceivedAt }
func (e *CustomMessageV1Event) GetKind() EventKind         { return CustomMessageReceived }
func (e *CustomMessageV1Event) GetPriority() EventPriority { return PriorityHigh }
func (e *CustomMessageV1Event) GetCached() any             { return e.Cached }
func (e *CustomMessageV1Event) SetCached(v any)            { e.Cached = v }
