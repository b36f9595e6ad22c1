package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/draft"
)

type draftService interface {
	Submit(ctx context.Context, input draft.SubmitInput) (*domain.Draft, error)
	Get(ctx context.Context, draftID uuid.UUID) (*draft.DraftDetails, error)
	AcknowledgeFlag(ctx context.Context, input draft.AcknowledgeFlagInput) (*domain.Draft, error)
	Approve(ctx context.Context, input draft.ApproveInput) (*domain.Draft, error)
	ModifyAndApprove(ctx context.Context, input draft.ModifyInput) (*domain.Draft, error)
	Reject(ctx context.Context, input draft.RejectInput) (*domain.Draft, error)
}

// DraftHandler serves the draft workflow endpoints.
type DraftHandler struct {
	svc draftService
	errorResponder
}

// NewDraftHandler creates a DraftHandler.
func NewDraftHandler(svc draftService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{svc: svc, errorResponder: errorResponder{log: logger.With("handler", "draft")}}
}

type flagRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type submitRequest struct {
	MatterID      uuid.UUID        `json:"matter_id"`
	Type          domain.DraftType `json:"type"`
	Content       []byte           `json:"content"`
	Flags         []flagRequest    `json:"flags"`
	PredecessorID *uuid.UUID       `json:"predecessor_id"`
}

type versionRequest struct {
	Version int `json:"version"`
}

type modifyRequest struct {
	Version int    `json:"version"`
	Content []byte `json:"content"`
}

type rejectRequest struct {
	Version int    `json:"version"`
	Reason  string `json:"reason"`
}

// Submit handles POST /v1/drafts.
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	flags := make([]draft.FlagInput, len(req.Flags))
	for i, f := range req.Flags {
		flags[i] = draft.FlagInput{Type: f.Type, Message: f.Message}
	}

	d, err := h.svc.Submit(r.Context(), draft.SubmitInput{
		MatterID:      req.MatterID,
		Type:          req.Type,
		Content:       req.Content,
		Flags:         flags,
		PredecessorID: req.PredecessorID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDraftResponse(d))
}

// Get handles GET /v1/drafts/{id}.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	dd, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftDetailsResponse(dd))
}

// AcknowledgeFlag handles POST /v1/drafts/{id}/flags/{flagID}/acknowledge.
func (h *DraftHandler) AcknowledgeFlag(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	flagID, err := pathUUID(r, "flagID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req versionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	d, err := h.svc.AcknowledgeFlag(r.Context(), draft.AcknowledgeFlagInput{DraftID: id, FlagID: flagID, Version: req.Version})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

// Approve handles POST /v1/drafts/{id}/approve.
func (h *DraftHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req versionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	d, err := h.svc.Approve(r.Context(), draft.ApproveInput{DraftID: id, Version: req.Version})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

// ModifyAndApprove handles POST /v1/drafts/{id}/modify-approve.
func (h *DraftHandler) ModifyAndApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req modifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	d, err := h.svc.ModifyAndApprove(r.Context(), draft.ModifyInput{DraftID: id, Version: req.Version, Content: req.Content})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

// Reject handles POST /v1/drafts/{id}/reject.
func (h *DraftHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	d, err := h.svc.Reject(r.Context(), draft.RejectInput{DraftID: id, Version: req.Version, Reason: req.Reason})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftResponse(d))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}
