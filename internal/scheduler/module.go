package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(
		func(lc fx.Lifecycle, logger *slog.Logger) *Async {
			a := NewAsync(16, logger)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					a.Close() // [GRACEFUL_SHUTDOWN] drain queued work
					return nil
				},
			})
			return a
		},
		func(a *Async) Executor { return a },
	),
)
