package messagingdi

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/config"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

var Module = fx.Module("messaging",
	fx.Provide(
		NewProvider,
		func(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger, provider messaging.Provider,
			handler messaging.Handler, exec *scheduler.Async, m *metrics.Metrics,
		) (*messaging.Service, error) {
			svc, err := messaging.NewService(context.Background(), logger, provider, handler,
				messaging.WithDedup(cfg.Messaging.DedupSize, cfg.Messaging.DedupTTL),
				messaging.WithExecutor(exec),
				messaging.WithMetrics(m),
			)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return svc.Close() // [GRACEFUL_SHUTDOWN] tasks stop before connections close
				},
			})
			return svc, nil
		},
	),
)
