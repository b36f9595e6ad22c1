package ledger

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
)

// Query returns one page of the actor's tenant ledger for the compliance
// viewer. A filter naming another tenant is denied.
func (s *Service) Query(ctx context.Context, f domain.AuditFilter) (domain.AuditPage, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return domain.AuditPage{}, err
	}
	if f.TenantID == uuid.Nil {
		f.TenantID = actor.TenantID
	}
	if err := validateFilter(f); err != nil {
		return domain.AuditPage{}, err
	}

	if err := s.guard.Check(ctx, actor, domain.ActionViewAuditLog, policy.ResourceRef{TenantID: f.TenantID}, auditLogSubject()); err != nil {
		return domain.AuditPage{}, err
	}

	page, err := s.store.Query(ctx, f)
	if err != nil {
		return domain.AuditPage{}, fmt.Errorf("query audit: %w", err)
	}

	rctx, cancel := s.guard.Detach(ctx)
	defer cancel()
	if _, err := s.guard.Record(rctx, actor, domain.ActionViewAuditLog, domain.OutcomeSuccess, auditLogSubject(), map[string]any{
		"result_count": len(page.Records),
		"has_more":     page.NextToken != "",
	}); err != nil {
		return domain.AuditPage{}, err
	}

	s.log.DebugContext(ctx, "audit queried",
		slog.String("actor_id", actor.ID.String()),
		slog.Int("records", len(page.Records)),
	)
	return page, nil
}

func validateFilter(f domain.AuditFilter) error {
	var errs []domain.FieldError
	for _, a := range f.Actions {
		if !a.IsValid() {
			errs = append(errs, domain.FieldError{Field: "action", Message: "unknown action " + string(a)})
		}
	}
	if f.ResourceType != nil && !f.ResourceType.IsValid() {
		errs = append(errs, domain.FieldError{Field: "resource_type", Message: "unknown resource type"})
	}
	if f.Outcome != nil && !f.Outcome.IsValid() {
		errs = append(errs, domain.FieldError{Field: "outcome", Message: "unknown outcome"})
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		errs = append(errs, domain.FieldError{Field: "to", Message: "must be after from"})
	}
	if f.Limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// All lazily yields every record matching f in ledger order, fetching one page
// at a time. Iteration stops at the first error, which is yielded. It is not
// guarded; callers are trusted read-side components.
func (s *Service) All(ctx context.Context, f domain.AuditFilter) iter.Seq2[domain.AuditRecord, error] {
	return func(yield func(domain.AuditRecord, error) bool) {
		f.PageToken = ""
		f.Limit = domain.MaxAuditPageSize
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.AuditRecord{}, err)
				return
			}

			page, err := s.store.Query(ctx, f)
			if err != nil {
				yield(domain.AuditRecord{}, fmt.Errorf("query audit: %w", err))
				return
			}
			for _, rec := range page.Records {
				if !yield(rec, nil) {
					return
				}
			}
			if page.NextToken == "" {
				return
			}
			f.PageToken = page.NextToken
		}
	}
}
