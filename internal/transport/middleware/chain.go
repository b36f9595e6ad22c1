package middleware

import (
	"log/slog"
	"net/http"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain combines middleware so that the first one given is the outermost.
// Nil entries are skipped.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				final = mws[i](final)
			}
		}
		return final
	}
}

// API is the stack in front of every authenticated route. Recovery is
// outermost; the request id and origin are set before Auth so rejections
// carry them, and the rate limit runs last so it can key on the actor.
// A nil limiter disables rate limiting.
func API(logger *slog.Logger, validator tokenValidator, trustProxy bool, limiter *RateLimiter) Middleware {
	var limit Middleware
	if limiter != nil {
		limit = limiter.Limit()
	}
	return Chain(
		Recovery(logger),
		RequestID(),
		Origin(trustProxy),
		Auth(validator),
		Logger(logger),
		limit,
	)
}
