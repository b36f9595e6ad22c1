package draft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// Approve moves a pending draft to APPROVED. Every flag must be acknowledged.
// The audit record carries the review duration since the current version was
// produced.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (*domain.Draft, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	d, err := s.authorizeApproval(ctx, actor, input.DraftID, input.Version)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	detail := map[string]any{
		domain.DetailFromStatus:            string(d.Status),
		domain.DetailToStatus:              string(domain.DraftStatusApproved),
		domain.DetailVersion:               d.Version,
		domain.DetailReviewDurationSeconds: reviewSeconds(d, now),
		"flags_acknowledged":               len(d.Flags),
	}

	updated, err := s.transition(ctx, actor, domain.ActionApproveDraft, d, domain.DraftTransition{
		TenantID:        d.TenantID,
		DraftID:         d.ID,
		ExpectedVersion: input.Version,
		Status:          domain.DraftStatusApproved,
		Version:         d.Version,
		TransitionedAt:  now,
		TransitionedBy:  actor.ID,
	}, nil, detail)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "draft approved",
		slog.String("draft_id", d.ID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Int("version", updated.Version),
	)
	return updated, nil
}

// ModifyAndApprove replaces the content of a pending draft and approves it as
// MODIFIED_APPROVED at the next version. The previous content is kept as a
// revision.
func (s *Service) ModifyAndApprove(ctx context.Context, input ModifyInput) (*domain.Draft, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	d, err := s.authorizeApproval(ctx, actor, input.DraftID, input.Version)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next := d.Version + 1
	detail := map[string]any{
		domain.DetailFromStatus:            string(d.Status),
		domain.DetailToStatus:              string(domain.DraftStatusModifiedApproved),
		domain.DetailVersion:               next,
		domain.DetailReviewDurationSeconds: reviewSeconds(d, now),
		"previous_version":                 d.Version,
		"flags_acknowledged":               len(d.Flags),
	}

	updated, err := s.transition(ctx, actor, domain.ActionApproveDraft, d, domain.DraftTransition{
		TenantID:        d.TenantID,
		DraftID:         d.ID,
		ExpectedVersion: input.Version,
		Status:          domain.DraftStatusModifiedApproved,
		Version:         next,
		Content:         input.Content,
		TransitionedAt:  now,
		TransitionedBy:  actor.ID,
		VersionedAt:     &now,
	}, &domain.DraftRevision{
		DraftID:   d.ID,
		Version:   d.Version,
		Content:   d.Content,
		CreatedAt: d.VersionedAt,
	}, detail)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "draft modified and approved",
		slog.String("draft_id", d.ID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Int("version", updated.Version),
	)
	return updated, nil
}

// authorizeApproval loads the draft, authorizes approve-draft and checks the
// preconditions shared by both approval paths.
func (s *Service) authorizeApproval(ctx context.Context, actor domain.Actor, draftID uuid.UUID, version int) (*domain.Draft, error) {
	d, ref, err := s.load(ctx, actor, domain.ActionApproveDraft, draftID)
	if err != nil {
		return nil, err
	}

	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, domain.ActionApproveDraft, ref, subj); err != nil {
		return nil, err
	}

	detail := map[string]any{domain.DetailVersion: version}
	if err := checkPending(d, version); err != nil {
		return nil, s.guard.Fail(ctx, actor, domain.ActionApproveDraft, subj, err, detail)
	}
	if pending := d.UnacknowledgedFlags(); len(pending) > 0 {
		ids := make([]string, len(pending))
		for i, id := range pending {
			ids[i] = id.String()
		}
		detail["unacknowledged_flags"] = ids
		err := fmt.Errorf("draft %s: %d flags: %w", d.ID, len(pending), domain.ErrUnacknowledgedFlags)
		return nil, s.guard.Fail(ctx, actor, domain.ActionApproveDraft, subj, err, detail)
	}
	return d, nil
}

func reviewSeconds(d *domain.Draft, now time.Time) float64 {
	secs := now.Sub(d.VersionedAt).Seconds()
	if secs < 0 {
		return 0
	}
	return secs
}
