package httpsrv

import (
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/webitel/player-sync-service/config"
)

var Module = fx.Module("http-server",
	fx.Provide(
		func(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *slog.Logger) *Server {
			s := New(cfg.HTTP.Address, handler, logger.With("component", "http"))
			lc.Append(fx.Hook{
				OnStart: s.Start,
				OnStop:  s.Stop,
			})
			return s
		},
	),
	fx.Invoke(func(*Server) {}),
)
