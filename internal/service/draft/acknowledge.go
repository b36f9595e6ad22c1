package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// AcknowledgeFlag marks one flag of a pending draft as reviewed. The draft
// version does not change. Acknowledging an acknowledged flag is a no-op that
// is still recorded.
func (s *Service) AcknowledgeFlag(ctx context.Context, input AcknowledgeFlagInput) (*domain.Draft, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	const action = domain.ActionAcknowledgeFlag
	d, ref, err := s.load(ctx, actor, action, input.DraftID)
	if err != nil {
		return nil, err
	}

	subj := access.DraftSubject(d)
	if err := s.guard.Check(ctx, actor, action, ref, subj); err != nil {
		return nil, err
	}

	detail := map[string]any{
		"flag_id":            input.FlagID.String(),
		domain.DetailVersion: input.Version,
	}

	if err := checkPending(d, input.Version); err != nil {
		return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
	}
	idx := d.FlagIndex(input.FlagID)
	if idx < 0 {
		err := fmt.Errorf("flag %s: %w", input.FlagID, domain.ErrNotFound)
		return nil, s.guard.Fail(ctx, actor, action, subj, err, detail)
	}

	dctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	if d.Flags[idx].Acknowledged {
		detail["already_acknowledged"] = true
		if _, err := s.guard.Record(dctx, actor, action, domain.OutcomeSuccess, subj, detail); err != nil {
			return nil, err
		}
		return d, nil
	}

	now := s.now().UTC()
	flags := append([]domain.Flag(nil), d.Flags...)
	flags[idx].Acknowledged = true
	flags[idx].AcknowledgedBy = &actor.ID
	flags[idx].AcknowledgedAt = &now
	detail["flag_type"] = flags[idx].Type

	var updated *domain.Draft
	err = s.tx.RunInTx(dctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.drafts.UpdateFlags(txCtx, d.TenantID, d.ID, input.Version, flags)
		if err != nil {
			return fmt.Errorf("update flags: %w", err)
		}
		_, err = s.guard.Record(txCtx, actor, action, domain.OutcomeSuccess, subj, detail)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			return nil, s.guard.Fail(dctx, actor, action, subj, err, detail)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "flag acknowledged",
		slog.String("draft_id", d.ID.String()),
		slog.String("flag_id", input.FlagID.String()),
		slog.String("actor_id", actor.ID.String()),
	)
	return updated, nil
}
