package draft

import (
	"context"
	"log/slog"
	"strings"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// Reject moves a pending draft to REJECTED. The draft is retained; a
// corrected document is submitted as a new draft naming it as predecessor.
func (s *Service) Reject(ctx context.Context, input RejectInput) (*domain.Draft, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	d, ref, err := s.load(ctx, actor, domain.ActionRejectDraft, input.DraftID)
	if err != nil {
		return nil, err
	}

	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, domain.ActionRejectDraft, ref, subj); err != nil {
		return nil, err
	}
	if err := checkPending(d, input.Version); err != nil {
		return nil, s.guard.Fail(ctx, actor, domain.ActionRejectDraft, subj, err, map[string]any{domain.DetailVersion: input.Version})
	}

	reason := strings.TrimSpace(input.Reason)
	updated, err := s.transition(ctx, actor, domain.ActionRejectDraft, d, domain.DraftTransition{
		TenantID:        d.TenantID,
		DraftID:         d.ID,
		ExpectedVersion: input.Version,
		Status:          domain.DraftStatusRejected,
		Version:         d.Version,
		TransitionedAt:  s.now().UTC(),
		TransitionedBy:  actor.ID,
	}, nil, map[string]any{
		domain.DetailFromStatus: string(d.Status),
		domain.DetailToStatus:   string(domain.DraftStatusRejected),
		domain.DetailVersion:    d.Version,
		domain.DetailReason:     reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "draft rejected",
		slog.String("draft_id", d.ID.String()),
		slog.String("actor_id", actor.ID.String()),
	)
	return updated, nil
}
