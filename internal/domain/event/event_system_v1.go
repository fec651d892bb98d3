package event

import (
	"time"

	"github.com/google/uuid"
)

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*SystemEvent)(nil)

// SystemEvent is a generic envelope for internal signals and domain notifications.
type SystemEvent struct {
	id         string
	channel    string
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	payload    any
	cached     any // transport-specific serialization cache
}

// [INTERFACE_IMPLEMENTATION]
func (e *SystemEvent) GetID() string              { return e.id }
func (e *SystemEvent) GetKind() EventKind         { return e.kind }
func (e *SystemEvent) GetChannel() string         { return e.channel }
func (e *SystemEvent) GetPriority() EventPriority { return e.priority }
func (e *SystemEvent) GetOccurredAt() int64       { return e.occurredAt }
func (e *SystemEvent) GetPayload() any            { return e.payload }
func (e *SystemEvent) GetCached() any             { return e.cached }
func (e *SystemEvent) SetCached(v any)            { e.cached = v }

// NewSystemEvent is a universal factory for creating any signal.
func NewSystemEvent(channel string, kind EventKind, priority EventPriority, payload any) *SystemEvent {
	return &SystemEvent{
		id:         uuid.NewString(),
		channel:    channel,
		kind:       kind,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		payload:    payload,
	}
}

// ConnectedPayload is sent as the first frame of every stream subscription.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	Channel      string `json:"channel"`
	ServerID     string `json:"server_id,omitempty"`
}
