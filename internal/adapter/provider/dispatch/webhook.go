// Package dispatch delivers approved drafts to the outbound dispatch service.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/casegate/casegate-backend/internal/domain"
)

// ErrIndeterminate means the dispatch service did not definitively accept the
// transmission. Callers must treat it as a failed send.
var ErrIndeterminate = errors.New("dispatch: indeterminate response")

const retryDelay = 500 * time.Millisecond

// Webhook posts transmissions to an HTTP endpoint.
type Webhook struct {
	url        string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewWebhook creates a Webhook dispatcher. timeout bounds each attempt.
func NewWebhook(url, token string, timeout time.Duration, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "dispatch"),
	}
}

// Transmit delivers t and returns the dispatch service's receipt.
// Only a 2xx response with status "accepted" and a non-empty receipt counts
// as delivered; every other outcome is an error.
func (w *Webhook) Transmit(ctx context.Context, t domain.Transmission) (domain.Receipt, error) {
	body, err := json.Marshal(toRequest(t))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("dispatch: encode request: %w", err)
	}

	w.log.DebugContext(ctx, "dispatch request",
		slog.String("send_id", t.SendID.String()),
		slog.String("method", string(t.Method)),
	)

	resp, err := w.doWithRetry(ctx, body, t)
	if err != nil {
		w.log.ErrorContext(ctx, "dispatch request failed",
			slog.String("send_id", t.SendID.String()), slog.String("error", err.Error()))
		return domain.Receipt{}, fmt.Errorf("dispatch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Receipt{}, fmt.Errorf("%w: status %d", ErrIndeterminate, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: read body: %v", ErrIndeterminate, err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: decode body: %v", ErrIndeterminate, err)
	}
	if out.Status != statusAccepted || out.Receipt == "" {
		return domain.Receipt{}, fmt.Errorf("%w: status %q", ErrIndeterminate, out.Status)
	}

	w.log.InfoContext(ctx, "dispatch accepted",
		slog.String("send_id", t.SendID.String()),
		slog.String("receipt", out.Receipt),
	)
	return domain.Receipt{Reference: out.Receipt}, nil
}

// doWithRetry posts once and retries a single time on a network error or a
// 5xx. The Idempotency-Key header lets the dispatch service drop the
// duplicate if the first attempt did reach it.
func (w *Webhook) doWithRetry(ctx context.Context, body []byte, t domain.Transmission) (*http.Response, error) {
	resp, err := w.post(ctx, body, t)

	shouldRetry := err != nil || resp.StatusCode >= 500
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
		resp.Body.Close()
	}
	w.log.WarnContext(ctx, "dispatch retry", slog.String("send_id", t.SendID.String()), slog.String("reason", reason))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryDelay):
	}

	return w.post(ctx, body, t)
}

func (w *Webhook) post(ctx context.Context, body []byte, t domain.Transmission) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", t.SendID.String())
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	return w.httpClient.Do(req)
}
