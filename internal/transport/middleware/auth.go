package middleware

import (
	"net/http"
	"strings"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (domain.Actor, error)
}

// Auth resolves the bearer token into an actor. Requests without a token pass
// through anonymously; protected operations reject them downstream.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r) // Anonymous
				return
			}
			actor, err := validator.ValidateAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			ctx := ctxutil.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
