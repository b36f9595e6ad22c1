package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// Submit stores a generated draft as PENDING at version 1. A predecessor, if
// given, must be a rejected draft of the same matter.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Draft, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	m, err := s.matters.GetByID(ctx, actor.TenantID, input.MatterID)
	if err != nil {
		subj := access.MatterSubject(input.MatterID)
		return nil, s.guard.DenyForeign(ctx, actor, domain.ActionCreateDraft, subj, s.matters.TenantOf, fmt.Errorf("get matter: %w", err))
	}

	now := s.now().UTC()
	d := &domain.Draft{
		ID:            uuid.New(),
		TenantID:      m.TenantID,
		MatterID:      m.ID,
		PredecessorID: input.PredecessorID,
		Type:          input.Type,
		Version:       1,
		Status:        domain.DraftStatusPending,
		Content:       input.Content,
		Flags:         make([]domain.Flag, 0, len(input.Flags)),
		CreatedAt:     now,
		VersionedAt:   now,
	}
	for _, f := range input.Flags {
		d.Flags = append(d.Flags, domain.Flag{
			ID:      uuid.New(),
			Type:    strings.TrimSpace(f.Type),
			Message: strings.TrimSpace(f.Message),
		})
	}

	subj := access.DraftSubject(d)
	ref := policy.ResourceRef{TenantID: m.TenantID, OwnerID: m.AssignedProfessionalID}
	if err := s.guard.Check(ctx, actor, domain.ActionCreateDraft, ref, subj); err != nil {
		return nil, err
	}

	if input.PredecessorID != nil {
		if err := s.checkPredecessor(ctx, actor, m.ID, *input.PredecessorID); err != nil {
			if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrAuditWrite) {
				return nil, err
			}
			return nil, s.guard.Fail(ctx, actor, domain.ActionCreateDraft, subj, err, nil)
		}
	}

	detail := map[string]any{
		domain.DetailToStatus: string(domain.DraftStatusPending),
		domain.DetailVersion:  d.Version,
		"type":                string(d.Type),
		"flags":               len(d.Flags),
	}
	if d.PredecessorID != nil {
		detail["predecessor_id"] = d.PredecessorID.String()
	}

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	var created *domain.Draft
	err = s.tx.RunInTx(dctx, func(txCtx context.Context) error {
		var err error
		created, err = s.drafts.Create(txCtx, d)
		if err != nil {
			return fmt.Errorf("create draft: %w", err)
		}
		_, err = s.guard.Record(txCtx, actor, domain.ActionCreateDraft, domain.OutcomeSuccess, subj, detail)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "draft submitted",
		slog.String("draft_id", created.ID.String()),
		slog.String("matter_id", created.MatterID.String()),
		slog.String("type", string(created.Type)),
		slog.Int("flags", len(created.Flags)),
	)
	return created, nil
}

func (s *Service) checkPredecessor(ctx context.Context, actor domain.Actor, matterID, predecessorID uuid.UUID) error {
	prev, err := s.drafts.GetByID(ctx, actor.TenantID, predecessorID)
	if err != nil {
		subj := access.ResourceSubject(domain.ResourceTypeDraft, predecessorID)
		return s.guard.DenyForeign(ctx, actor, domain.ActionCreateDraft, subj, s.drafts.TenantOf, fmt.Errorf("get predecessor: %w", err))
	}
	if prev.MatterID != matterID || prev.Status != domain.DraftStatusRejected {
		return domain.NewValidationError("predecessor_id", "must reference a rejected draft of the same matter")
	}
	return nil
}
