package sendgate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// GetSend returns one send record. Viewing requires view-draft on the draft.
func (s *Service) GetSend(ctx context.Context, sendID uuid.UUID) (*domain.SendRecord, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if sendID == uuid.Nil {
		return nil, domain.NewValidationError("send_id", "required")
	}

	rec, err := s.sends.GetByID(ctx, actor.TenantID, sendID)
	if err != nil {
		subj := access.ResourceSubject(domain.ResourceTypeSend, sendID)
		return nil, s.guard.DenyForeign(ctx, actor, domain.ActionViewDraft, subj, s.sends.TenantOf, fmt.Errorf("get send record: %w", err))
	}
	if err := s.authorizeView(ctx, actor, rec.DraftID, map[string]any{domain.DetailSendRecordID: rec.ID.String()}); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSends returns the send records of a draft, oldest first.
func (s *Service) ListSends(ctx context.Context, draftID uuid.UUID) ([]domain.SendRecord, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if draftID == uuid.Nil {
		return nil, domain.NewValidationError("draft_id", "required")
	}

	recs, err := s.sends.ListByDraft(ctx, actor.TenantID, draftID)
	if err != nil {
		return nil, fmt.Errorf("list send records: %w", err)
	}
	if err := s.authorizeView(ctx, actor, draftID, map[string]any{"result_count": len(recs)}); err != nil {
		return nil, err
	}
	return recs, nil
}

// authorizeView checks view-draft on the draft and records the read.
func (s *Service) authorizeView(ctx context.Context, actor domain.Actor, draftID uuid.UUID, detail map[string]any) error {
	d, m, err := s.load(ctx, actor, domain.ActionViewDraft, draftID)
	if err != nil {
		return err
	}
	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, domain.ActionViewDraft, resourceRef(m), subj); err != nil {
		return err
	}

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	_, err = s.guard.Record(dctx, actor, domain.ActionViewDraft, domain.OutcomeSuccess, subj, detail)
	return err
}
