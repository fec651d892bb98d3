package registry

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/internal/domain/event"
)

var Module = fx.Module("registry",
	fx.Provide(
		NewUsers,
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(logger *slog.Logger) *Hub {
			return NewHub(logger,
				WithEvictionInterval(5*time.Minute),
				WithIdleTimeout(10*time.Minute),
				WithMailboxSize(1024),
			)
		},
		func(h *Hub) Hubber { return h },
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber, events *event.Dispatcher) {
		// [FAN_OUT] every accepted custom message reaches local stream subscribers
		unsubscribe := events.Subscribe(event.CustomMessageReceived, func(_ context.Context, ev event.Eventer) {
			h.Broadcast(ev)
		})
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				unsubscribe()
				h.Shutdown() // [GRACEFUL_SHUTDOWN] Stop all Actor goroutines
				return nil
			},
		})
	}),
)
