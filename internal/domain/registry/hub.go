package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

// AllChannels subscribes a session to every custom message channel.
const AllChannels = "*"

// Hubber defines the gateway for stream session management and event routing.
type Hubber interface {
	Broadcast(ev event.Eventer) bool
	Register(conn Connector)
	Unregister(channel string, connID uuid.UUID)
	IsSubscribed(channel string) bool
	Stats() HubStats
	Shutdown()
}

// HubStats is a point-in-time view of stream subscriptions.
type HubStats struct {
	Channels int `json:"channels"`
	Sessions int `json:"sessions"`
}

// Hub implements a [SCALABLE_REGISTRY] using Virtual Cell pattern.
type Hub struct {
	config hubConfig
	logger *slog.Logger

	// cells stores Map[string]Celler. Optimized for [READ_HEAVY] workloads.
	cells sync.Map

	janitor *scheduler.RepeatingTask
}

func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{config: defaultHubConfig(), logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	h.janitor = scheduler.NewRepeatingTask("hub-janitor",
		h.config.evictionInterval, h.config.evictionInterval, logger, h.evictIdle)
	return h
}

func (h *Hub) IsSubscribed(channel string) bool {
	_, ok := h.cells.Load(channel)
	return ok
}

// Broadcast routes ev to its channel cell and to the catch-all cell.
// Returns false when nobody took it.
func (h *Hub) Broadcast(ev event.Eventer) bool {
	delivered := false
	for _, key := range []string{ev.GetChannel(), AllChannels} {
		if val, ok := h.cells.Load(key); ok {
			if val.(Celler).Push(ev) {
				delivered = true
			} else {
				h.logger.Warn("MAILBOX_OVERFLOW", "channel", key, "event_id", ev.GetID())
			}
		}
	}
	return delivered
}

// Register ensures [IDEMPOTENT] cell creation and attaches a new session.
// A cell evicted between lookup and attach is replaced.
func (h *Hub) Register(conn Connector) {
	for {
		val, ok := h.cells.Load(conn.GetChannel())
		if !ok {
			// [LAZY_INIT] Create the cell only when the first session arrives.
			cell := NewCell(conn.GetChannel(), h.config.mailboxSize, h.config.sendTimeout)
			var loaded bool
			if val, loaded = h.cells.LoadOrStore(conn.GetChannel(), cell); loaded {
				cell.Stop()
			}
		}
		if val.(Celler).Attach(conn) {
			return
		}
		h.cells.CompareAndDelete(conn.GetChannel(), val)
	}
}

// Unregister closes the session; the cell stays until the janitor finds it idle.
func (h *Hub) Unregister(channel string, connID uuid.UUID) {
	if val, ok := h.cells.Load(channel); ok {
		val.(Celler).Detach(connID)
	}
}

func (h *Hub) Stats() HubStats {
	var s HubStats
	h.cells.Range(func(_, val any) bool {
		s.Channels++
		s.Sessions += val.(Celler).Sessions()
		return true
	})
	return s
}

// [JANITOR] reclaims cells without sessions or traffic.
func (h *Hub) evictIdle(context.Context) {
	h.cells.Range(func(key, val any) bool {
		cell := val.(Celler)
		if cell.IsIdle(h.config.idleTimeout) {
			h.cells.Delete(key)
			cell.Stop()
			h.logger.Debug("CELL_EVICTED", "channel", key)
		}
		return true
	})
}

// Shutdown stops the janitor and every cell, closing all sessions.
func (h *Hub) Shutdown() {
	h.janitor.Cancel()
	h.cells.Range(func(key, val any) bool {
		h.cells.Delete(key)
		val.(Celler).Stop()
		return true
	})
}
