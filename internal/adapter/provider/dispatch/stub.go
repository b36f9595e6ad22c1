package dispatch

import (
	"context"
	"log/slog"

	"github.com/casegate/casegate-backend/internal/domain"
)

// Stub accepts every transmission without delivering it. For development.
type Stub struct {
	log *slog.Logger
}

// NewStub creates a log-only dispatcher.
func NewStub(logger *slog.Logger) *Stub {
	return &Stub{log: logger.With("adapter", "dispatch_stub")}
}

// Transmit logs t and returns a receipt derived from the send id.
func (s *Stub) Transmit(ctx context.Context, t domain.Transmission) (domain.Receipt, error) {
	s.log.InfoContext(ctx, "stub dispatch",
		slog.String("send_id", t.SendID.String()),
		slog.String("draft_id", t.DraftID.String()),
		slog.String("method", string(t.Method)),
		slog.Int("bytes", len(t.Content)),
	)
	return domain.Receipt{Reference: "stub-" + t.SendID.String()}, nil
}
