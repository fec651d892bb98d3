package storagedi

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/storage"
)

var Module = fx.Module("storage",
	fx.Provide(
		NewImplementation,
		func(impl storage.Implementation, users *registry.Users, events *event.Dispatcher, logger *slog.Logger) *storage.Storage {
			return storage.New(impl, users, events, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, s *storage.Storage, logger *slog.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := s.Init(ctx); err != nil {
					return err
				}
				logger.Info("STORAGE_STARTED", "name", s.Name())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return s.Shutdown(ctx)
			},
		})
	}),
)
