package lpmarshaller

import (
	"encoding/json"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/handler/marshaller"
)

// Response is the long-poll batch.
type Response struct {
	Events []*marshaller.Frame `json:"events"`
}

// MarshallEvents converts a batch of domain events into one JSON document.
func MarshallEvents(events []event.Eventer) ([]byte, error) {
	res := Response{Events: make([]*marshaller.Frame, 0, len(events))}
	for _, ev := range events {
		res.Events = append(res.Events, marshaller.MarshallDeliveryEvent(ev))
	}
	return json.Marshal(res)
}
