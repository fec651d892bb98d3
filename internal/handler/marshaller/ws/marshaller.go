package wsmarshaller

import (
	"encoding/json"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/handler/marshaller"
)

// MarshallDeliveryEvent encodes one event as a websocket text frame.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	return json.Marshal(marshaller.MarshallDeliveryEvent(ev))
}
