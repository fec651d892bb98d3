package rest

import (
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/config"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/handler/lp"
	"github.com/webitel/player-sync-service/internal/handler/ws"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/service"
	"github.com/webitel/player-sync-service/internal/storage"
)

var Module = fx.Module("admin-http",
	fx.Provide(
		ws.NewWSHandler,
		lp.NewLPHandler,
		func(
			cfg *config.Config,
			publisher *messaging.Service,
			users *service.UserManager,
			loader service.UserLoader,
			platform service.Platform,
			syncer *service.Syncer,
			st *storage.Storage,
			hub registry.Hubber,
			logger *slog.Logger,
		) *Handler {
			return NewHandler(Deps{
				Publisher:    publisher,
				Players:      users,
				Loader:       loader,
				Platform:     platform,
				Syncer:       syncer,
				Store:        st,
				Hub:          hub,
				SyncCooldown: cfg.HTTP.SyncCooldown,
				ServerID:     cfg.Server.ID,
				Logger:       logger,
			})
		},
		func(cfg *config.Config, h *Handler, wsh *ws.WSHandler, lph *lp.LPHandler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
			return NewRouter(h, wsh, lph, m, logger, RouterOptions{
				Token:     cfg.HTTP.Token,
				RateRPS:   cfg.HTTP.RateRPS,
				RateBurst: cfg.HTTP.RateBurst,
			})
		},
	),
)
