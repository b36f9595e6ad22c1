package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.RemoteAddr = remote
	return req
}

func requestAs(actor domain.Actor, remote string) *http.Request {
	req := requestFrom(remote)
	return req.WithContext(ctxutil.WithActor(req.Context(), actor))
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	t.Parallel()
	handler := NewRateLimiter(60, 10, time.Minute).Limit()(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("1.2.3.4:1234"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should be allowed", i)
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	t.Parallel()
	handler := NewRateLimiter(1, 5, time.Minute).Limit()(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("1.2.3.4:1234"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("1.2.3.4:1234"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestRateLimiter_KeysByActor(t *testing.T) {
	t.Parallel()
	handler := NewRateLimiter(1, 2, time.Minute).Limit()(okHandler())

	alice := domain.Actor{ID: uuid.New(), Role: domain.RoleAssistantStaff, TenantID: uuid.New()}
	bob := domain.Actor{ID: uuid.New(), Role: domain.RoleAssistantStaff, TenantID: alice.TenantID}

	// Same address, different actors: separate buckets.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAs(alice, "10.0.0.1:1000"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(alice, "10.0.0.2:1000"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "actor bucket follows the actor across addresses")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(bob, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_DifferentOriginsIndependent(t *testing.T) {
	t.Parallel()
	handler := NewRateLimiter(1, 2, time.Minute).Limit()(okHandler())

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom("1.1.1.1:1234"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("2.2.2.2:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	t.Parallel()
	// 600 per minute = 1 every 100ms
	handler := NewRateLimiter(600, 1, time.Minute).Limit()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("3.3.3.3:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("3.3.3.3:1234"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	time.Sleep(150 * time.Millisecond)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("3.3.3.3:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
