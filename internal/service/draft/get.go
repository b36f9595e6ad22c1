package draft

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// Get returns a draft with its revision history. The read is recorded.
func (s *Service) Get(ctx context.Context, draftID uuid.UUID) (*DraftDetails, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if draftID == uuid.Nil {
		return nil, domain.NewValidationError("draft_id", "required")
	}

	d, ref, err := s.load(ctx, actor, domain.ActionViewDraft, draftID)
	if err != nil {
		return nil, err
	}

	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, domain.ActionViewDraft, ref, subj); err != nil {
		return nil, err
	}

	revs, err := s.drafts.ListRevisions(ctx, actor.TenantID, d.ID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	if _, err := s.guard.Record(dctx, actor, domain.ActionViewDraft, domain.OutcomeSuccess, subj, map[string]any{
		domain.DetailVersion: d.Version,
	}); err != nil {
		return nil, err
	}

	return &DraftDetails{Draft: d, Revisions: revs}, nil
}
