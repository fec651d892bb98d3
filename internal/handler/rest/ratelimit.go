package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	visitorTTL   = 10 * time.Minute
	maxVisitors  = 65536
	anonymousKey = "anonymous"
)

// RateLimiter is a per-caller token bucket. Buckets idle for visitorTTL
// expire, and the least recently seen caller is dropped past maxVisitors.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors *expirable.LRU[string, *rate.Limiter]
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: expirable.NewLRU[string, *rate.Limiter](maxVisitors, nil, visitorTTL),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.visitors.Get(key)
	if !ok {
		lim = rate.NewLimiter(rl.rps, rl.burst)
	}
	// [MEMORY_MANAGEMENT] re-adding restarts the idle TTL
	rl.visitors.Add(key, lim)
	return lim
}

// Handler rejects callers over their budget with 429. It must run after
// NewBearerAuth so the caller is known.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := GetCaller(r.Context())
		if !ok {
			key = anonymousKey
		}
		if !rl.limiter(key).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
