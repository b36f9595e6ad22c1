// Package draft implements draft persistence using PostgreSQL.
// Every mutation is a compare-and-swap on (version, status = 'PENDING').
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/domain"
)

// Repo provides draft persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new draft repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const draftColumns = `id, tenant_id, matter_id, predecessor_id, type, version, status, content, flags,
    created_at, versioned_at, last_transitioned_at, last_transitioned_by`

const getByIDSQL = `
SELECT ` + draftColumns + `
FROM drafts
WHERE id = $1 AND tenant_id = $2`

const tenantOfSQL = `SELECT tenant_id FROM drafts WHERE id = $1`

const createSQL = `
INSERT INTO drafts (id, tenant_id, matter_id, predecessor_id, type, version, status, content, flags, created_at, versioned_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + draftColumns

const transitionSQL = `
UPDATE drafts
SET status = $4,
    version = $5,
    content = COALESCE($6, content),
    versioned_at = COALESCE($7, versioned_at),
    last_transitioned_at = $8,
    last_transitioned_by = $9
WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status = 'PENDING'
RETURNING ` + draftColumns

const updateFlagsSQL = `
UPDATE drafts
SET flags = $4
WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status = 'PENDING'
RETURNING ` + draftColumns

const insertRevisionSQL = `
INSERT INTO draft_revisions (draft_id, version, content, created_at)
VALUES ($1, $2, $3, $4)`

const listRevisionsSQL = `
SELECT r.draft_id, r.version, r.content, r.created_at
FROM draft_revisions r
JOIN drafts d ON d.id = r.draft_id
WHERE r.draft_id = $1 AND d.tenant_id = $2
ORDER BY r.version`

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a draft scoped to the tenant.
// Returns domain.ErrNotFound if it does not exist or belongs to another tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Draft, error) {
	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, getByIDSQL, id, tenantID)

	d, err := scanDraft(row)
	if err != nil {
		return nil, postgres.MapError(err, "draft", id)
	}
	return d, nil
}

// TenantOf returns the tenant that owns a draft, whoever asks.
func (r *Repo) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, tenantOfSQL, id).Scan(&tenantID); err != nil {
		return uuid.Nil, postgres.MapError(err, "draft", id)
	}
	return tenantID, nil
}

// ListRevisions returns the superseded content versions of a draft.
func (r *Repo) ListRevisions(ctx context.Context, tenantID, draftID uuid.UUID) ([]domain.DraftRevision, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, listRevisionsSQL, draftID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list draft_revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.DraftRevision
	for rows.Next() {
		var rev domain.DraftRevision
		if err := rows.Scan(&rev.DraftID, &rev.Version, &rev.Content, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan draft_revision: %w", err)
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list draft_revisions: %w", err)
	}
	return revs, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new draft and returns the persisted domain.Draft.
func (r *Repo) Create(ctx context.Context, d *domain.Draft) (*domain.Draft, error) {
	flags, err := marshalFlags(d.Flags)
	if err != nil {
		return nil, err
	}

	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, createSQL,
		d.ID, d.TenantID, d.MatterID, d.PredecessorID, string(d.Type), d.Version, string(d.Status),
		d.Content, flags, d.CreatedAt.UTC().Truncate(time.Microsecond), d.VersionedAt.UTC().Truncate(time.Microsecond),
	)

	created, err := scanDraft(row)
	if err != nil {
		return nil, postgres.MapError(err, "draft", d.ID)
	}
	return created, nil
}

// Transition applies t if the draft is still PENDING at t.ExpectedVersion.
// Returns domain.ErrStaleVersion when the compare-and-swap matches no row.
func (r *Repo) Transition(ctx context.Context, t domain.DraftTransition) (*domain.Draft, error) {
	var versionedAt *time.Time
	if t.VersionedAt != nil {
		v := t.VersionedAt.UTC().Truncate(time.Microsecond)
		versionedAt = &v
	}

	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, transitionSQL,
		t.DraftID, t.TenantID, t.ExpectedVersion, string(t.Status), t.Version, t.Content, versionedAt,
		t.TransitionedAt.UTC().Truncate(time.Microsecond), t.TransitionedBy,
	)

	d, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", t.DraftID, domain.ErrStaleVersion)
		}
		return nil, postgres.MapError(err, "draft", t.DraftID)
	}
	return d, nil
}

// UpdateFlags replaces the flag list if the draft is still PENDING at
// expectedVersion. The version is not incremented.
func (r *Repo) UpdateFlags(ctx context.Context, tenantID, draftID uuid.UUID, expectedVersion int, flags []domain.Flag) (*domain.Draft, error) {
	raw, err := marshalFlags(flags)
	if err != nil {
		return nil, err
	}

	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, updateFlagsSQL, draftID, tenantID, expectedVersion, raw)

	d, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", draftID, domain.ErrStaleVersion)
		}
		return nil, postgres.MapError(err, "draft", draftID)
	}
	return d, nil
}

// SaveRevision keeps the content of a superseded version.
func (r *Repo) SaveRevision(ctx context.Context, rev domain.DraftRevision) error {
	_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, insertRevisionSQL,
		rev.DraftID, rev.Version, rev.Content, rev.CreatedAt.UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		return postgres.MapError(err, "draft_revision", rev.DraftID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scanning helpers
// ---------------------------------------------------------------------------

func scanDraft(row pgx.Row) (*domain.Draft, error) {
	var (
		d         domain.Draft
		draftType string
		status    string
		flags     []byte
	)
	err := row.Scan(
		&d.ID, &d.TenantID, &d.MatterID, &d.PredecessorID, &draftType, &d.Version, &status, &d.Content, &flags,
		&d.CreatedAt, &d.VersionedAt, &d.LastTransitionedAt, &d.LastTransitionedBy,
	)
	if err != nil {
		return nil, err
	}

	d.Type = domain.DraftType(draftType)
	d.Status = domain.DraftStatus(status)
	d.Flags = []domain.Flag{}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &d.Flags); err != nil {
			return nil, fmt.Errorf("draft %s unmarshal flags: %w", d.ID, err)
		}
	}
	return &d, nil
}

func marshalFlags(flags []domain.Flag) ([]byte, error) {
	if flags == nil {
		flags = []domain.Flag{}
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	return raw, nil
}
