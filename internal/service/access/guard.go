// Package access composes the policy engine with the audit ledger so that
// every gated attempt leaves exactly one audit record.
package access

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

type authorizer interface {
	Authorize(actor domain.Actor, action domain.Action, res policy.ResourceRef) policy.Decision
	Version() string
}

type auditAppender interface {
	Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error)
}

// Subject is what an audit record is about.
type Subject struct {
	ResourceType domain.ResourceType
	ResourceID   *uuid.UUID
	MatterID     *uuid.UUID
	// CorrectsID is set on records that amend an earlier record.
	CorrectsID *uuid.UUID
}

// DraftSubject returns the subject for a draft.
func DraftSubject(d *domain.Draft) Subject {
	id, matterID := d.ID, d.MatterID
	return Subject{ResourceType: domain.ResourceTypeDraft, ResourceID: &id, MatterID: &matterID}
}

// MatterSubject returns the subject for a matter.
func MatterSubject(matterID uuid.UUID) Subject {
	return Subject{ResourceType: domain.ResourceTypeMatter, ResourceID: &matterID, MatterID: &matterID}
}

// ResourceSubject returns the subject for a resource known only by id.
func ResourceSubject(typ domain.ResourceType, id uuid.UUID) Subject {
	return Subject{ResourceType: typ, ResourceID: &id}
}

// Locator returns the tenant that owns a resource, ignoring the caller's tenant.
type Locator func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

// Guard authorizes actions and records their outcomes.
type Guard struct {
	policy       authorizer
	audit        auditAppender
	writeTimeout time.Duration
	log          *slog.Logger
}

// NewGuard creates a Guard. writeTimeout bounds durable steps that no longer
// follow the caller's cancellation.
func NewGuard(log *slog.Logger, policy authorizer, audit auditAppender, writeTimeout time.Duration) *Guard {
	return &Guard{
		policy:       policy,
		audit:        audit,
		writeTimeout: writeTimeout,
		log:          log.With("service", "access"),
	}
}

// Actor returns the authenticated actor carried by ctx.
func (g *Guard) Actor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ctxutil.ActorFromCtx(ctx)
	if !ok {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	return actor, nil
}

// RulesVersion returns the version of the policy table in force.
func (g *Guard) RulesVersion() string {
	return g.policy.Version()
}

// Check authorizes action for actor. A denial appends one DENIED record and
// returns a *domain.DeniedError; if that record cannot be written the result
// is an audit write error instead.
func (g *Guard) Check(ctx context.Context, actor domain.Actor, action domain.Action, res policy.ResourceRef, subj Subject) error {
	decision := g.policy.Authorize(actor, action, res)
	if decision.Allowed {
		return nil
	}

	ctx, cancel := g.Detach(ctx)
	defer cancel()

	_, err := g.audit.Append(ctx, g.newRecord(ctx, actor, action, domain.OutcomeDenied, subj, map[string]any{
		domain.DetailReason:       decision.Reason,
		domain.DetailRulesVersion: decision.RulesVersion,
	}))
	if err != nil {
		g.log.ErrorContext(ctx, "denied attempt not recorded",
			slog.String("action", string(action)),
			slog.String("actor_id", actor.ID.String()),
			slog.String("error", err.Error()),
		)
		return domain.NewAuditWriteError(err)
	}

	g.log.WarnContext(ctx, "action denied",
		slog.String("action", string(action)),
		slog.String("actor_id", actor.ID.String()),
		slog.String("reason", decision.Reason),
	)
	return &domain.DeniedError{Action: action, Reason: decision.Reason}
}

// DenyForeign takes the error of a tenant-scoped lookup of subj. If nothing
// was found because the resource belongs to another tenant, the attempt is
// denied and recorded under the actor's tenant. Otherwise cause is returned.
func (g *Guard) DenyForeign(ctx context.Context, actor domain.Actor, action domain.Action, subj Subject, locate Locator, cause error) error {
	if !errors.Is(cause, domain.ErrNotFound) || subj.ResourceID == nil {
		return cause
	}
	tenantID, err := locate(ctx, *subj.ResourceID)
	if err != nil || tenantID == actor.TenantID {
		return cause
	}
	if err := g.Check(ctx, actor, action, policy.ResourceRef{TenantID: tenantID}, subj); err != nil {
		return err
	}
	return cause
}

// Record appends an audit record with the given outcome. It joins the
// transaction carried by ctx, if any.
func (g *Guard) Record(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj Subject, detail map[string]any) (domain.AuditRecord, error) {
	rec, err := g.audit.Append(ctx, g.newRecord(ctx, actor, action, outcome, subj, detail))
	if err != nil {
		return domain.AuditRecord{}, domain.NewAuditWriteError(err)
	}
	return rec, nil
}

// Fail records a FAILURE for an authorized attempt that did not complete and
// returns cause. If the record cannot be written the audit write error is
// returned and cause is only logged.
func (g *Guard) Fail(ctx context.Context, actor domain.Actor, action domain.Action, subj Subject, cause error, detail map[string]any) error {
	d := make(map[string]any, len(detail)+2)
	maps.Copy(d, detail)
	d[domain.DetailReason] = ReasonFor(cause)
	d[domain.DetailError] = cause.Error()

	ctx, cancel := g.Detach(ctx)
	defer cancel()

	if _, err := g.Record(ctx, actor, action, domain.OutcomeFailure, subj, d); err != nil {
		g.log.ErrorContext(ctx, "failed attempt not recorded",
			slog.String("action", string(action)),
			slog.String("cause", cause.Error()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return cause
}

// Detach returns a context that keeps ctx's values but not its cancellation,
// bounded by the write timeout.
func (g *Guard) Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), g.writeTimeout)
}

func (g *Guard) newRecord(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj Subject, detail map[string]any) domain.AuditRecord {
	d := make(map[string]any, len(detail)+1)
	maps.Copy(d, detail)
	if _, ok := d[domain.DetailRulesVersion]; !ok {
		d[domain.DetailRulesVersion] = g.policy.Version()
	}
	if rid := ctxutil.RequestIDFromCtx(ctx); rid != "" {
		d["request_id"] = rid
	}

	rec := domain.AuditRecord{
		TenantID:     actor.TenantID,
		Action:       action,
		ResourceType: subj.ResourceType,
		ResourceID:   subj.ResourceID,
		MatterID:     subj.MatterID,
		Outcome:      outcome,
		Detail:       d,
		Origin:       ctxutil.OriginFromCtx(ctx),
		CorrectsID:   subj.CorrectsID,
	}
	if actor.ID != uuid.Nil {
		id, role := actor.ID, actor.Role
		rec.ActorID = &id
		rec.ActorRole = &role
	}
	return rec
}

// ReasonFor maps an error to the short reason stored in FAILURE records.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrReconciliationRequired):
		return "reconciliation_required"
	case errors.Is(err, domain.ErrStaleVersion):
		return "stale_version"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrDraftNotApproved):
		return "not_approved"
	case errors.Is(err, domain.ErrUnacknowledgedFlags):
		return "unacknowledged_flags"
	case errors.Is(err, domain.ErrSendInProgress):
		return "send_in_progress"
	case errors.Is(err, domain.ErrLeaseLost):
		return "lease_lost"
	case errors.Is(err, domain.ErrTransport):
		return "transport_failure"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
