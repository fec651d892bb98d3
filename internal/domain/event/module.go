package event

import (
	"log/slog"

	"github.com/webitel/player-sync-service/internal/scheduler"
	"go.uber.org/fx"
)

var Module = fx.Module("event",
	fx.Provide(
		func(logger *slog.Logger, exec *scheduler.Async) *Dispatcher {
			return NewDispatcher(logger, exec)
		},
	),
)
