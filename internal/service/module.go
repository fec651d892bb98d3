package service

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/config"
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		NewSessions,
		func(s *Sessions) Platform { return s },
		func(cfg *config.Config, users *registry.Users, events *event.Dispatcher, platform Platform, logger *slog.Logger) *Housekeeper {
			return NewHousekeeper(users, events, platform, logger, cfg.Users.Retention)
		},
		NewUserManager,
		func(m *UserManager) UserLoader { return m },
		NewSyncTask,
		func(lc fx.Lifecycle, cfg *config.Config, task *SyncTask, logger *slog.Logger) *Syncer {
			s := NewSyncer(task, cfg.Sync.Debounce, logger)
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					s.Close() // [GRACEFUL_SHUTDOWN] pending waiters receive buffer.ErrClosed
					return nil
				},
			})
			return s
		},
		NewMessageHandler,
		func(h *MessageHandler) messaging.Handler { return h },
		func(cfg *config.Config, hub registry.Hubber) *DeliveryService {
			return NewDeliveryService(hub, cfg.Server.ID)
		},
		func(s *DeliveryService) Deliverer { return s },
	),

	// [DECORATION_LAYER] Intercept UserLoader to add cross-cutting concerns
	fx.Decorate(NewLoaderMiddleware),

	fx.Invoke(startBackgroundTasks),
)

func startBackgroundTasks(
	lc fx.Lifecycle,
	cfg *config.Config,
	housekeeper *Housekeeper,
	syncer *Syncer,
	m *metrics.Metrics,
	users *registry.Users,
	logger *slog.Logger,
) {
	var tasks []*scheduler.RepeatingTask

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			interval := cfg.Users.HousekeepingInterval
			if interval <= 0 {
				interval = 30 * time.Second
			}
			tasks = append(tasks, scheduler.NewRepeatingTask("user-housekeeper", interval, interval, logger, func(ctx context.Context) {
				housekeeper.Tick(ctx)
				m.SetLoadedUsers(users.Len())
			}))

			if cfg.Sync.IntervalMinutes > 0 {
				every := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
				tasks = append(tasks, scheduler.NewRepeatingTask("periodic-sync", every, every, logger, syncer.Tick))
				logger.Info("PERIODIC_SYNC_ENABLED", "interval", every)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			for _, t := range tasks {
				t.Cancel()
			}
			return nil
		},
	})
}
