package rest

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

type contextKey string

// CallerContextKey stores the caller identity used for per-caller limits.
const CallerContextKey contextKey = "caller"

// NewBearerAuth validates "Authorization: Bearer <token>" before the request
// reaches a handler and injects the caller identity into the context.
// An empty token disables the check; the caller is still identified.
func NewBearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH]
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					w.Header().Set("WWW-Authenticate", `Bearer realm="playersync"`)
					writeError(w, http.StatusUnauthorized, "authentication failed")
					return
				}
			}

			// [ENRICHMENT]
			ctx := context.WithValue(r.Context(), CallerContextKey, clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller extracts the caller identity from the context.
func GetCaller(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(CallerContextKey).(string)
	return caller, ok && caller != ""
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
