package marshaller

import (
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// Frame is the JSON shape of one stream event, shared by the websocket and
// long-poll transports.
type Frame struct {
	Event    string `json:"event"`
	ID       string `json:"id"`
	Channel  string `json:"channel,omitempty"`
	SentAt   int64  `json:"sent_at"`
	Priority string `json:"priority"`
	Payload  any    `json:"payload,omitempty"`
}

// CustomPayload is the wire view of a received custom message.
type CustomPayload struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Payload   string `json:"payload"`
}

// MarshallDeliveryEvent maps ev to a Frame. The result is cached on the event
// so a broadcast to many sessions maps it only once.
func MarshallDeliveryEvent(ev event.Eventer) *Frame {
	if cached := ev.GetCached(); cached != nil {
		if f, ok := cached.(*Frame); ok {
			return f
		}
	}

	res := &Frame{
		Event:    eventName(ev.GetKind()),
		ID:       ev.GetID(),
		Channel:  ev.GetChannel(),
		SentAt:   ev.GetOccurredAt(),
		Priority: mapPriority(ev.GetPriority()),
	}

	switch p := ev.GetPayload().(type) {
	case *model.CustomMessage:
		res.Payload = &CustomPayload{
			ID:        p.ID.String(),
			ChannelID: p.ChannelID,
			Payload:   p.Payload,
		}
	case *event.ConnectedPayload:
		res.Payload = p
	}

	ev.SetCached(res)
	return res
}

func eventName(k event.EventKind) string {
	switch k {
	case event.Connected:
		return "connected"
	case event.CustomMessageReceived:
		return "custom_message"
	default:
		return "unknown"
	}
}

func mapPriority(p event.EventPriority) string {
	switch p {
	case event.PriorityLow:
		return "low"
	case event.PriorityNormal:
		return "normal"
	case event.PriorityHigh:
		return "high"
	default:
		return "unspecified"
	}
}
