package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/sendgate"
)

type sendService interface {
	ExecuteSend(ctx context.Context, input sendgate.ExecuteSendInput) (*domain.SendRecord, error)
	GetSend(ctx context.Context, sendID uuid.UUID) (*domain.SendRecord, error)
	ListSends(ctx context.Context, draftID uuid.UUID) ([]domain.SendRecord, error)
}

// SendHandler serves the send-gate endpoints.
type SendHandler struct {
	svc sendService
	errorResponder
}

// NewSendHandler creates a SendHandler.
func NewSendHandler(svc sendService, logger *slog.Logger) *SendHandler {
	return &SendHandler{svc: svc, errorResponder: errorResponder{log: logger.With("handler", "send")}}
}

type executeSendRequest struct {
	Recipient       string                 `json:"recipient"`
	Method          domain.SendMethod      `json:"method"`
	Acknowledgments domain.Acknowledgments `json:"acknowledgments"`
}

// Execute handles POST /v1/drafts/{id}/sends. A repeated request for the same
// recipient and method returns the original record with 200 instead of 201.
func (h *SendHandler) Execute(w http.ResponseWriter, r *http.Request) {
	draftID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req executeSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	started := time.Now()
	rec, err := h.svc.ExecuteSend(r.Context(), sendgate.ExecuteSendInput{
		DraftID:         draftID,
		Recipient:       req.Recipient,
		Method:          req.Method,
		Acknowledgments: req.Acknowledgments,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if rec.CreatedAt.Before(started) {
		status = http.StatusOK
	}
	writeJSON(w, status, toSendResponse(rec))
}

// List handles GET /v1/drafts/{id}/sends.
func (h *SendHandler) List(w http.ResponseWriter, r *http.Request) {
	draftID, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	recs, err := h.svc.ListSends(r.Context(), draftID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]sendResponse, len(recs))
	for i := range recs {
		out[i] = toSendResponse(&recs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"sends": out})
}

// Get handles GET /v1/sends/{id}.
func (h *SendHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	rec, err := h.svc.GetSend(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSendResponse(rec))
}
