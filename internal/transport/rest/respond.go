package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

// maxBodyBytes bounds request bodies. Draft content is the largest payload.
const maxBodyBytes = 8 << 20

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Reason  string       `json:"reason,omitempty"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorPayload{Code: code, Message: message}})
}

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// errorResponder maps service errors to HTTP responses.
type errorResponder struct {
	log *slog.Logger
}

func (e errorResponder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := classify(err)

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
		slog.Int("status", status),
	}
	switch {
	case status == http.StatusBadGateway:
		e.log.WarnContext(r.Context(), "request failed", attrs...)
	case status >= 500:
		e.log.ErrorContext(r.Context(), "request failed", attrs...)
	default:
		e.log.DebugContext(r.Context(), "request rejected", attrs...)
	}

	writeJSON(w, status, errorBody{Error: payload})
}

// classify maps an error to a status code and a client-safe payload. Order
// matters: a reconciliation error also wraps ErrAuditWrite.
func classify(err error) (int, errorPayload) {
	var (
		ve *domain.ValidationError
		de *domain.DeniedError
	)
	switch {
	case errors.As(err, &ve):
		fields := make([]fieldError, len(ve.Errors))
		for i, f := range ve.Errors {
			fields[i] = fieldError{Field: f.Field, Message: f.Message}
		}
		return http.StatusBadRequest, errorPayload{Code: "validation", Message: "invalid request", Fields: fields}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorPayload{Code: "validation", Message: "invalid request"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Code: "unauthorized", Message: "authentication required"}
	case errors.As(err, &de):
		return http.StatusForbidden, errorPayload{Code: "permission_denied", Message: "permission denied", Reason: de.Reason}
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, errorPayload{Code: "permission_denied", Message: "permission denied"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Code: "not_found", Message: "not found"}
	case errors.Is(err, domain.ErrReconciliationRequired):
		return http.StatusInternalServerError, errorPayload{Code: "reconciliation_required", Message: "transmission succeeded but could not be recorded; reconciliation required"}
	case errors.Is(err, domain.ErrAuditWrite):
		return http.StatusInternalServerError, errorPayload{Code: "audit_write_failed", Message: "action not performed: audit record could not be written"}
	case errors.Is(err, domain.ErrStaleVersion):
		return http.StatusConflict, errorPayload{Code: "stale_version", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{Code: "invalid_transition", Message: err.Error()}
	case errors.Is(err, domain.ErrSendInProgress):
		return http.StatusConflict, errorPayload{Code: "send_in_progress", Message: err.Error()}
	case errors.Is(err, domain.ErrUnacknowledgedFlags):
		return http.StatusConflict, errorPayload{Code: "unacknowledged_flags", Message: err.Error()}
	case errors.Is(err, domain.ErrDraftNotApproved):
		return http.StatusConflict, errorPayload{Code: "not_approved", Message: err.Error()}
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorPayload{Code: "conflict", Message: "conflict"}
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, errorPayload{Code: "transport_failed", Message: "transmission failed; it may be retried"}
	default:
		return http.StatusInternalServerError, errorPayload{Code: "internal", Message: "internal error"}
	}
}
