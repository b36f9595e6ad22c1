// Package ledger exposes the audit ledger to callers: guarded queries for the
// compliance viewer, chain verification, replay and corrections.
package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
)

type auditStore interface {
	Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error)
	Query(ctx context.Context, f domain.AuditFilter) (domain.AuditPage, error)
	Chain(ctx context.Context, tenantID uuid.UUID, afterSeq int64, limit int) ([]domain.AuditRecord, error)
	Head(ctx context.Context, tenantID uuid.UUID) (int64, string, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.AuditRecord, error)
}

type guard interface {
	Actor(ctx context.Context) (domain.Actor, error)
	Check(ctx context.Context, actor domain.Actor, action domain.Action, res policy.ResourceRef, subj access.Subject) error
	Record(ctx context.Context, actor domain.Actor, action domain.Action, outcome domain.Outcome, subj access.Subject, detail map[string]any) (domain.AuditRecord, error)
	Detach(ctx context.Context) (context.Context, context.CancelFunc)
}

// chainBatch is how many records VerifyChain reads per round trip.
const chainBatch = 500

// Service provides audit ledger operations.
type Service struct {
	store auditStore
	guard guard
	log   *slog.Logger
}

// NewService creates a new ledger Service.
func NewService(log *slog.Logger, store auditStore, guard guard) *Service {
	return &Service{
		store: store,
		guard: guard,
		log:   log.With("service", "ledger"),
	}
}

// Append durably writes rec. It does not follow the caller's cancellation
// once called.
func (s *Service) Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	ctx, cancel := s.guard.Detach(ctx)
	defer cancel()

	out, err := s.store.Append(ctx, rec)
	if err != nil {
		return domain.AuditRecord{}, domain.NewAuditWriteError(err)
	}
	return out, nil
}

func auditLogSubject() access.Subject {
	return access.Subject{ResourceType: domain.ResourceTypeAuditLog}
}
