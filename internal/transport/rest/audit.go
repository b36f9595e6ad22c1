package rest

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/ledger"
)

type ledgerService interface {
	Query(ctx context.Context, f domain.AuditFilter) (domain.AuditPage, error)
	VerifyChain(ctx context.Context, tenantID uuid.UUID) (ledger.ChainReport, error)
	Correct(ctx context.Context, input ledger.CorrectInput) (domain.AuditRecord, error)
}

// AuditHandler serves the compliance viewer endpoints.
type AuditHandler struct {
	svc ledgerService
	errorResponder
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc ledgerService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, errorResponder: errorResponder{log: logger.With("handler", "audit")}}
}

type correctRequest struct {
	Reason string         `json:"reason"`
	Detail map[string]any `json:"detail"`
}

// Query handles GET /v1/audit. The tenant is always the caller's.
//
// Filters: actor_id, action (repeatable or comma separated), resource_type,
// resource_id, matter_id, outcome, from, to (RFC 3339), limit, page_token.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	f, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page, err := h.svc.Query(r.Context(), f)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditPageResponse(page))
}

// Verify handles POST /v1/audit/verify.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.VerifyChain(r.Context(), uuid.Nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Correct handles POST /v1/audit/{id}/corrections.
func (h *AuditHandler) Correct(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req correctRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	rec, err := h.svc.Correct(r.Context(), ledger.CorrectInput{RecordID: id, Reason: req.Reason, Detail: req.Detail})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuditRecordResponse(rec))
}

func parseAuditFilter(q url.Values) (domain.AuditFilter, error) {
	var (
		f    domain.AuditFilter
		errs []domain.FieldError
	)
	bad := func(field, msg string) { errs = append(errs, domain.FieldError{Field: field, Message: msg}) }

	parseID := func(field string) *uuid.UUID {
		v := q.Get(field)
		if v == "" {
			return nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			bad(field, "must be a UUID")
			return nil
		}
		return &id
	}
	parseTime := func(field string) *time.Time {
		v := q.Get(field)
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			bad(field, "must be an RFC 3339 timestamp")
			return nil
		}
		return &t
	}

	f.ActorID = parseID("actor_id")
	f.ResourceID = parseID("resource_id")
	f.MatterID = parseID("matter_id")
	f.From = parseTime("from")
	f.To = parseTime("to")

	for _, v := range q["action"] {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				f.Actions = append(f.Actions, domain.Action(a))
			}
		}
	}
	if v := q.Get("resource_type"); v != "" {
		rt := domain.ResourceType(v)
		f.ResourceType = &rt
	}
	if v := q.Get("outcome"); v != "" {
		o := domain.Outcome(strings.ToUpper(v))
		f.Outcome = &o
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			bad("limit", "must be an integer")
		}
		f.Limit = n
	}
	f.PageToken = q.Get("page_token")

	if len(errs) > 0 {
		return domain.AuditFilter{}, domain.NewValidationErrors(errs)
	}
	return f, nil
}
