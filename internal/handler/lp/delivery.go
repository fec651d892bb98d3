package lp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	lpmarshaller "github.com/webitel/player-sync-service/internal/handler/marshaller/lp"
	"github.com/webitel/player-sync-service/internal/service"
)

const (
	defaultPollTimeout = 30 * time.Second
	maxPollTimeout     = 2 * time.Minute
	maxBatch           = 16
)

type LPHandler struct {
	deliverer service.Deliverer
}

func NewLPHandler(deliverer service.Deliverer) *LPHandler {
	return &LPHandler{deliverer: deliverer}
}

// Poll holds the request until a custom message arrives on the channel or the
// timeout passes (204). The Connected frame of the short-lived subscription is
// not returned.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = registry.AllChannels
	}

	timeout := defaultPollTimeout
	if s := r.URL.Query().Get("timeout"); s != "" {
		sec, err := strconv.Atoi(s)
		if err != nil || sec <= 0 {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = min(time.Duration(sec)*time.Second, maxPollTimeout)
	}

	conn, err := h.deliverer.Subscribe(r.Context(), channel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer h.deliverer.Unsubscribe(channel, conn.GetID())

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var events []event.Eventer
wait:
	for {
		select {
		case <-r.Context().Done():
			return
		case <-timer.C:
			w.WriteHeader(http.StatusNoContent)
			return
		case ev, ok := <-conn.Recv():
			if !ok {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if ev.GetKind() == event.Connected {
				continue
			}
			events = append(events, ev)
			break wait
		}
	}

	// [BATCHING] drain what is already buffered
drain:
	for len(events) < maxBatch {
		select {
		case ev, ok := <-conn.Recv():
			if !ok {
				break drain
			}
			events = append(events, ev)
		default:
			break drain
		}
	}

	data, err := lpmarshaller.MarshallEvents(events)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
