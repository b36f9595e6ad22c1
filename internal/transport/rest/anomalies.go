package rest

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/anomaly"
)

type anomalyService interface {
	Scan(ctx context.Context, input anomaly.ScanInput) (*anomaly.ScanResult, error)
}

// AnomalyHandler serves the quick-approval report.
type AnomalyHandler struct {
	svc anomalyService
	errorResponder
}

// NewAnomalyHandler creates an AnomalyHandler.
func NewAnomalyHandler(svc anomalyService, logger *slog.Logger) *AnomalyHandler {
	return &AnomalyHandler{svc: svc, errorResponder: errorResponder{log: logger.With("handler", "anomaly")}}
}

type quickApprovalsResponse struct {
	From             time.Time           `json:"from"`
	To               time.Time           `json:"to"`
	ThresholdSeconds float64             `json:"threshold_seconds"`
	MinCount         int                 `json:"min_count"`
	Actors           []domain.ActorCount `json:"actors"`
}

// QuickApprovals handles GET /v1/anomalies/quick-approvals?from=&to=&threshold_seconds=.
func (h *AnomalyHandler) QuickApprovals(w http.ResponseWriter, r *http.Request) {
	input, err := parseScanInput(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.svc.Scan(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	actors := res.Actors
	if actors == nil {
		actors = []domain.ActorCount{}
	}
	writeJSON(w, http.StatusOK, quickApprovalsResponse{
		From:             res.Window.From,
		To:               res.Window.To,
		ThresholdSeconds: res.ThresholdSeconds,
		MinCount:         res.MinCount,
		Actors:           actors,
	})
}

func parseScanInput(r *http.Request) (anomaly.ScanInput, error) {
	q := r.URL.Query()
	var (
		input anomaly.ScanInput
		errs  []domain.FieldError
	)
	for _, field := range []string{"from", "to"} {
		v := q.Get(field)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: field, Message: "must be an RFC 3339 timestamp"})
			continue
		}
		if field == "from" {
			input.From = &t
		} else {
			input.To = &t
		}
	}
	if v := q.Get("threshold_seconds"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
			errs = append(errs, domain.FieldError{Field: "threshold_seconds", Message: "must be a positive number"})
		} else {
			input.Threshold = time.Duration(secs * float64(time.Second))
		}
	}
	if len(errs) > 0 {
		return anomaly.ScanInput{}, domain.NewValidationErrors(errs)
	}
	return input, nil
}
