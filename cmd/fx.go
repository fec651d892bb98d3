package cmd

import (
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/webitel/player-sync-service/config"
	clientdi "github.com/webitel/player-sync-service/infra/client/di"
	httpsrv "github.com/webitel/player-sync-service/infra/server/http"
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/handler/rest"
	messagingdi "github.com/webitel/player-sync-service/internal/messaging/di"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/scheduler"
	"github.com/webitel/player-sync-service/internal/service"
	storagedi "github.com/webitel/player-sync-service/internal/storage/di"
)

// NewApp assembles the node. Hooks stop in reverse order: the HTTP server
// first, then messaging, sync and storage, and the shared connections last.
func NewApp(cfg *config.Config, logger *slog.Logger) *fx.App {
	return fx.New(
		fx.Supply(cfg, logger),
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		clientdi.Module,
		scheduler.Module,
		metrics.Module,
		event.Module,
		registry.Module,
		storagedi.Module,
		service.Module,
		messagingdi.Module,
		rest.Module,
		httpsrv.Module,
	)
}

// NewLogger builds the process logger; level is shared with config reloads.
func NewLogger(format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
