package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/conflict"
)

type conflictService interface {
	RunCheck(ctx context.Context, matterID uuid.UUID) (*domain.ConflictReport, error)
	Decide(ctx context.Context, input conflict.DecideInput) (*conflict.Decision, error)
}

// ConflictHandler serves the conflict check endpoints.
type ConflictHandler struct {
	svc conflictService
	errorResponder
}

// NewConflictHandler creates a ConflictHandler.
func NewConflictHandler(svc conflictService, logger *slog.Logger) *ConflictHandler {
	return &ConflictHandler{svc: svc, errorResponder: errorResponder{log: logger.With("handler", "conflict")}}
}

type decideRequest struct {
	Decision domain.ConflictDecision `json:"decision"`
	Reason   string                  `json:"reason"`
}

type decisionResponse struct {
	AuditRecordID uuid.UUID               `json:"audit_record_id"`
	Decision      domain.ConflictDecision `json:"decision"`
	Reason        string                  `json:"reason"`
	Report        conflictReportResponse  `json:"report"`
}

// RunCheck handles POST /v1/matters/{id}/conflict-checks.
func (h *ConflictHandler) RunCheck(w http.ResponseWriter, r *http.Request) {
	matterID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	report, err := h.svc.RunCheck(r.Context(), matterID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConflictReportResponse(report))
}

// Decide handles POST /v1/matters/{id}/conflict-decisions.
func (h *ConflictHandler) Decide(w http.ResponseWriter, r *http.Request) {
	matterID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req decideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	d, err := h.svc.Decide(r.Context(), conflict.DecideInput{MatterID: matterID, Decision: req.Decision, Reason: req.Reason})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, decisionResponse{
		AuditRecordID: d.AuditRecordID,
		Decision:      d.Decision,
		Reason:        d.Reason,
		Report:        toConflictReportResponse(d.Report),
	})
}
