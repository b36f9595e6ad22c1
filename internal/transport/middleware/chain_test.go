package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

func tracing(name string, order *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name+"-before")
			next.ServeHTTP(w, r)
			*order = append(*order, name+"-after")
		})
	}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name string
		mws  func(order *[]string) []Middleware
		want []string
	}{
		{
			name: "outermost first",
			mws:  func(o *[]string) []Middleware { return []Middleware{tracing("mw1", o), tracing("mw2", o)} },
			want: []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"},
		},
		{
			name: "nil skipped",
			mws:  func(o *[]string) []Middleware { return []Middleware{nil, tracing("mw1", o), nil} },
			want: []string{"mw1-before", "handler", "mw1-after"},
		},
		{
			name: "empty",
			mws:  func(*[]string) []Middleware { return nil },
			want: []string{"handler"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order []string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "handler")
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			Chain(tt.mws(&order)...)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if !slices.Equal(order, tt.want) {
				t.Errorf("order = %v, want %v", order, tt.want)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		})
	}
}

func TestAPI_PopulatesContext(t *testing.T) {
	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAdministrator, TenantID: uuid.New()}
	validator := &tokenValidatorMock{
		ValidateAccessTokenFunc: func(string) (domain.Actor, error) { return actor, nil },
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		gotActor  domain.Actor
		gotOrigin string
		gotReqID  string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = ctxutil.ActorFromCtx(r.Context())
		gotOrigin = ctxutil.OriginFromCtx(r.Context())
		gotReqID = ctxutil.RequestIDFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mw := API(log, validator, false, NewRateLimiter(60, 1, time.Minute))
	h := mw(handler)

	req := httptest.NewRequest(http.MethodGet, "/v1/policy", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotActor != actor {
		t.Errorf("actor = %+v, want %+v", gotActor, actor)
	}
	if gotOrigin != "192.0.2.7" {
		t.Errorf("origin = %q", gotOrigin)
	}
	if gotReqID == "" || rec.Header().Get(RequestIDHeader) != gotReqID {
		t.Errorf("request id = %q, header %q", gotReqID, rec.Header().Get(RequestIDHeader))
	}

	// burst of one: the same actor is limited on the next request
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}
