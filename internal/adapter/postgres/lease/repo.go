// Package lease implements per-draft exclusive send leases in PostgreSQL.
// A lease expires on its own so a crashed holder cannot wedge a draft.
package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/domain"
)

// Repo hands out send leases backed by the send_leases table.
type Repo struct {
	db postgres.Querier
}

// New creates a new lease repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const acquireSQL = `
INSERT INTO send_leases (draft_id, tenant_id, holder, expires_at)
VALUES ($1, $2, $3, now() + make_interval(secs => $4))
ON CONFLICT (draft_id) DO UPDATE
SET tenant_id = EXCLUDED.tenant_id, holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
WHERE send_leases.expires_at < now()`

const renewSQL = `
UPDATE send_leases
SET expires_at = now() + make_interval(secs => $3)
WHERE draft_id = $1 AND holder = $2 AND expires_at > now()`

const releaseSQL = `
DELETE FROM send_leases WHERE draft_id = $1 AND holder = $2`

// Acquire takes the lease for draftID on behalf of holder for ttl.
// Returns domain.ErrSendInProgress while another holder's lease is live.
func (r *Repo) Acquire(ctx context.Context, tenantID, draftID, holder uuid.UUID, ttl time.Duration) error {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, acquireSQL, draftID, tenantID, holder, ttl.Seconds())
	if err != nil {
		return postgres.MapError(err, "send_lease", draftID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("send_lease %s: %w", draftID, domain.ErrSendInProgress)
	}
	return nil
}

// Renew extends holder's live lease to ttl from now. Inside a transaction the
// lease row stays locked until commit, so no other holder can take it first.
// Returns domain.ErrLeaseLost if the lease expired or belongs to someone else.
func (r *Repo) Renew(ctx context.Context, draftID, holder uuid.UUID, ttl time.Duration) error {
	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, renewSQL, draftID, holder, ttl.Seconds())
	if err != nil {
		return postgres.MapError(err, "send_lease", draftID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("send_lease %s: %w", draftID, domain.ErrLeaseLost)
	}
	return nil
}

// Release gives the lease back. Releasing a lease that expired and was taken
// by someone else is a no-op.
func (r *Repo) Release(ctx context.Context, draftID, holder uuid.UUID) error {
	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, releaseSQL, draftID, holder); err != nil {
		return postgres.MapError(err, "send_lease", draftID)
	}
	return nil
}
