package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/webitel/player-sync-service/internal/domain/registry"
	wsmarshaller "github.com/webitel/player-sync-service/internal/handler/marshaller/ws"
	"github.com/webitel/player-sync-service/internal/service"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WSHandler streams received custom messages to websocket clients.
// The channel query parameter selects one channel; it defaults to all channels.
type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		upgrader: websocket.Upgrader{
			// admin endpoint behind the bearer token, not a browser surface
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = registry.AllChannels
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WS_UPGRADE_FAILED", "err", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := h.deliverer.Subscribe(ctx, channel)
	if err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeTimeout))
		return
	}
	defer h.deliverer.Unsubscribe(channel, conn.GetID())

	logger := h.logger.With("channel", channel, "conn_id", conn.GetID())
	logger.Info("WS_OPENED")
	defer func() { logger.Info("WS_CLOSED", "dropped", conn.Dropped()) }()

	// [READ_PUMP] clients never send data; reading surfaces close frames and dead peers
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case ev, ok := <-conn.Recv():
			if !ok {
				return
			}

			data, err := wsmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				logger.Error("WS_MARSHAL_FAILED", "err", err)
				continue
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("WS_SEND_FAILED", "err", err)
				return
			}
		}
	}
}
