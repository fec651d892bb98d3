package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
)

const DefaultUserRetention = time.Minute

// Housekeeper unloads users that are neither online nor recently used.
type Housekeeper struct {
	users    *registry.Users
	events   *event.Dispatcher
	platform Platform
	logger   *slog.Logger

	// [MEMORY_MANAGEMENT] ids touched within the retention window
	recent *expirable.LRU[uuid.UUID, struct{}]
}

func NewHousekeeper(users *registry.Users, events *event.Dispatcher, platform Platform, logger *slog.Logger, retention time.Duration) *Housekeeper {
	if retention <= 0 {
		retention = DefaultUserRetention
	}
	return &Housekeeper{
		users:    users,
		events:   events,
		platform: platform,
		logger:   logger,
		recent:   expirable.NewLRU[uuid.UUID, struct{}](0, nil, retention),
	}
}

func (h *Housekeeper) RegisterUsage(id uuid.UUID) {
	h.recent.Add(id, struct{}{})
}

// Run is one housekeeping pass; it reports how many users were unloaded.
func (h *Housekeeper) Run(ctx context.Context) int {
	unloaded := 0
	for id, u := range h.users.All() {
		if h.platform.IsOnline(id) || h.recent.Contains(id) {
			continue
		}
		if h.events.DispatchUserUnload(ctx, u) {
			continue
		}
		h.users.Unload(id)
		unloaded++
	}
	if unloaded > 0 {
		h.logger.Debug("USERS_UNLOADED", "count", unloaded, "remaining", h.users.Len())
	}
	return unloaded
}

// Tick adapts Run to a scheduler.Task.
func (h *Housekeeper) Tick(ctx context.Context) { h.Run(ctx) }
