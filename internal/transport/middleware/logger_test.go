package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

func logOnce(t *testing.T, status int, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	wrapped := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not one JSON line: %v: %q", err, buf.String())
	}
	return entry
}

func TestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusConflict, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusForbidden, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			entry := logOnce(t, tt.status, httptest.NewRequest(http.MethodPost, "/v1/drafts", nil))

			if entry["msg"] != "http.request" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["method"] != "POST" || entry["path"] != "/v1/drafts" {
				t.Errorf("method/path = %v %v", entry["method"], entry["path"])
			}
			if _, ok := entry["duration"]; !ok {
				t.Error("expected duration")
			}
		})
	}
}

func TestLogger_IncludesContextIdentifiers(t *testing.T) {
	t.Parallel()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleAssistantStaff, TenantID: uuid.New()}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := ctxutil.WithRequestID(req.Context(), "test-request-id-123")
	ctx = ctxutil.WithActor(ctx, actor)
	ctx = ctxutil.WithOrigin(ctx, "203.0.113.9")

	entry := logOnce(t, http.StatusOK, req.WithContext(ctx))

	want := map[string]string{
		"request_id": "test-request-id-123",
		"actor_id":   actor.ID.String(),
		"tenant_id":  actor.TenantID.String(),
		"origin":     "203.0.113.9",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
}

func TestLogger_AnonymousOmitsActor(t *testing.T) {
	t.Parallel()

	entry := logOnce(t, http.StatusUnauthorized, httptest.NewRequest(http.MethodGet, "/v1/audit", nil))

	if _, ok := entry["actor_id"]; ok {
		t.Errorf("anonymous request logged an actor: %v", entry)
	}
	if _, ok := entry["origin"]; ok {
		t.Errorf("origin logged without Origin middleware: %v", entry)
	}
}
