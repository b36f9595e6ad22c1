package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

// CorrectInput describes a correction of an existing audit record.
type CorrectInput struct {
	RecordID uuid.UUID
	Reason   string
	Detail   map[string]any
}

// Validate checks all fields and collects all errors.
func (i CorrectInput) Validate() error {
	var errs []domain.FieldError
	if i.RecordID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "record_id", Message: "required"})
	}
	reason := strings.TrimSpace(i.Reason)
	if reason == "" {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "required"})
	}
	if len(reason) > 2000 {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "max 2000 characters"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Correct appends a record that references and amends an existing one.
// The original is never modified.
func (s *Service) Correct(ctx context.Context, input CorrectInput) (domain.AuditRecord, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return domain.AuditRecord{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.AuditRecord{}, err
	}

	original, err := s.store.GetByID(ctx, actor.TenantID, input.RecordID)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("get audit record: %w", err)
	}

	id := original.ID
	subj := access.Subject{ResourceType: domain.ResourceTypeAuditRecord, ResourceID: &id, MatterID: original.MatterID}
	if err := s.guard.Check(ctx, actor, domain.ActionCorrectAuditRecord, policy.ResourceRef{TenantID: original.TenantID}, subj); err != nil {
		return domain.AuditRecord{}, err
	}

	detail := map[string]any{
		domain.DetailReason: strings.TrimSpace(input.Reason),
		"corrects_seq":      original.Seq,
		"corrects_action":   string(original.Action),
	}
	if input.Detail != nil {
		detail["correction"] = input.Detail
	}

	ctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	subj.CorrectsID = &id
	rec, err := s.guard.Record(ctx, actor, domain.ActionCorrectAuditRecord, domain.OutcomeSuccess, subj, detail)
	if err != nil {
		return domain.AuditRecord{}, err
	}

	s.log.InfoContext(ctx, "audit record corrected",
		slog.String("actor_id", actor.ID.String()),
		slog.String("corrects_id", id.String()),
		slog.Int64("seq", rec.Seq),
	)
	return rec, nil
}
