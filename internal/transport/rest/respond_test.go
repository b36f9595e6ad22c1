package rest

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casegate/casegate-backend/internal/domain"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	reconcile := fmt.Errorf("send x: %w: %w", domain.ErrReconciliationRequired, domain.NewAuditWriteError(errors.New("disk full")))
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domain.NewValidationError("reason", "required"), http.StatusBadRequest, "validation"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"denied", &domain.DeniedError{Action: domain.ActionApproveDraft, Reason: "not_owner"}, http.StatusForbidden, "permission_denied"},
		{"not found", fmt.Errorf("get draft: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"stale", fmt.Errorf("x: %w", domain.ErrStaleVersion), http.StatusConflict, "stale_version"},
		{"terminal", domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"in progress", domain.ErrSendInProgress, http.StatusConflict, "send_in_progress"},
		{"unacknowledged", domain.ErrUnacknowledgedFlags, http.StatusConflict, "unacknowledged_flags"},
		{"not approved", domain.ErrDraftNotApproved, http.StatusConflict, "not_approved"},
		{"transport", fmt.Errorf("%w: %w", domain.ErrTransport, errors.New("502 from gateway")), http.StatusBadGateway, "transport_failed"},
		{"audit write", domain.NewAuditWriteError(errors.New("disk full")), http.StatusInternalServerError, "audit_write_failed"},
		{"reconciliation wins over audit write", reconcile, http.StatusInternalServerError, "reconciliation_required"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, payload := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, payload.Code)
		})
	}
}

func TestClassify_CarriesFieldsAndReason(t *testing.T) {
	t.Parallel()

	_, payload := classify(domain.NewValidationErrors([]domain.FieldError{
		{Field: "version", Message: "must be at least 1"},
		{Field: "reason", Message: "required"},
	}))
	require.Len(t, payload.Fields, 2)
	assert.Equal(t, "version", payload.Fields[0].Field)

	_, payload = classify(fmt.Errorf("approve: %w", &domain.DeniedError{Reason: "tenant_mismatch"}))
	assert.Equal(t, "tenant_mismatch", payload.Reason)

	_, payload = classify(errors.New("pq: password authentication failed for user casegate"))
	assert.NotContains(t, payload.Message, "password", "internal errors must not leak")
}

func TestHandleError_LogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"transport failure", fmt.Errorf("%w: timeout", domain.ErrTransport), "level=WARN"},
		{"audit write", domain.NewAuditWriteError(errors.New("disk full")), "level=ERROR"},
		{"stale", domain.ErrStaleVersion, "level=DEBUG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			e := errorResponder{log: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

			e.handleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/drafts", nil), tt.err)

			assert.Contains(t, buf.String(), tt.level)
		})
	}
}

func TestDecodeJSON_RejectsTrailingData(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"version":1}{"version":2}`))
	var dst versionRequest
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseAuditFilter(t *testing.T) {
	t.Parallel()

	q := url.Values{}
	q.Add("action", "approve-draft,execute-send")
	q.Add("action", "reject-draft")
	q.Set("outcome", "denied")
	q.Set("from", "2026-04-01T00:00:00Z")
	q.Set("limit", "50")
	q.Set("page_token", "abc")

	f, err := parseAuditFilter(q)
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{domain.ActionApproveDraft, domain.ActionExecuteSend, domain.ActionRejectDraft}, f.Actions)
	require.NotNil(t, f.Outcome)
	assert.Equal(t, domain.OutcomeDenied, *f.Outcome)
	require.NotNil(t, f.From)
	assert.True(t, f.From.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, f.To)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, "abc", f.PageToken)

	_, err = parseAuditFilter(url.Values{"actor_id": {"bob"}, "limit": {"many"}})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
