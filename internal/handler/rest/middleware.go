package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/player-sync-service/internal/metrics"
)

// instrument records request metrics by route pattern and logs failures.
func instrument(m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// [CARDINALITY] route pattern, not the raw path
			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			d := time.Since(start)
			m.HTTPRequest(r.Method, path, strconv.Itoa(status), d)

			if status >= http.StatusInternalServerError {
				logger.Warn("HTTP_REQUEST_FAILED",
					"method", r.Method,
					"path", path,
					"status", status,
					"duration", d,
					"request_id", middleware.GetReqID(r.Context()),
				)
			}
		})
	}
}
