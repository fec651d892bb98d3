package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webitel/player-sync-service/internal/handler/lp"
	"github.com/webitel/player-sync-service/internal/handler/ws"
	"github.com/webitel/player-sync-service/internal/metrics"
)

type RouterOptions struct {
	Token     string
	RateRPS   float64
	RateBurst int
}

// NewRouter mounts the admin API.
//
// Middleware order: request id, recovery, metrics, then per group auth and rate
// limiting. /metrics and /v1/health stay open for probes and scrapers.
func NewRouter(h *Handler, wsh *ws.WSHandler, lph *lp.LPHandler, m *metrics.Metrics, logger *slog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(m, logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(NewBearerAuth(opts.Token))

		// streams are long-lived and exempt from the request budget
		r.Method(http.MethodGet, "/v1/ws/custom", wsh)
		r.Get("/v1/poll/custom", lph.Poll)

		r.Group(func(r chi.Router) {
			if opts.RateRPS > 0 {
				r.Use(NewRateLimiter(opts.RateRPS, opts.RateBurst).Handler)
			}

			r.Post("/v1/sync", h.Sync)
			r.Post("/v1/messages/update", h.PushUpdate)
			r.Post("/v1/messages/custom", h.PushCustom)

			r.Route("/v1/players/{uuid}", func(r chi.Router) {
				r.Get("/", h.GetPlayer)
				r.Post("/login", h.Login)
				r.Post("/logout", h.Logout)
				r.Post("/refresh", h.Refresh)
			})
		})
	})

	return r
}
