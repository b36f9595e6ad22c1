package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

// RateLimiter implements per-actor token bucket rate limiting. Anonymous
// callers are keyed by their origin address. Idle buckets expire.
type RateLimiter struct {
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing perMinute requests per key with
// the given burst. Buckets idle for longer than idle are dropped.
func NewRateLimiter(perMinute, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: cache.New(idle, idle),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Limit returns middleware enforcing the limiter. It must run after Auth and
// Origin.
func (rl *RateLimiter) Limit() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := rl.limiter(rateKey(r))
			if !lim.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		// Touch so active callers keep their bucket.
		rl.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	if err := rl.buckets.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Lost the race; use the winner.
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.limit <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(rl.limit)))
}

func rateKey(r *http.Request) string {
	if actor, ok := ctxutil.ActorFromCtx(r.Context()); ok {
		return "actor:" + actor.ID.String()
	}
	origin := ctxutil.OriginFromCtx(r.Context())
	if origin == "" {
		origin = r.RemoteAddr
	}
	return "origin:" + origin
}
