// Package send implements send record persistence using PostgreSQL.
package send

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/domain"
)

// Repo provides send record persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new send record repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const sendColumns = `id, tenant_id, draft_id, matter_id, recipient, method, authorized_by,
    transport_receipt, audit_record_id, created_at`

const createSQL = `
INSERT INTO send_records (` + sendColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + sendColumns

const getByKeySQL = `
SELECT ` + sendColumns + `
FROM send_records
WHERE tenant_id = $1 AND draft_id = $2 AND recipient = $3 AND method = $4`

const getByIDSQL = `
SELECT ` + sendColumns + `
FROM send_records
WHERE tenant_id = $1 AND id = $2`

const tenantOfSQL = `SELECT tenant_id FROM send_records WHERE id = $1`

const listByDraftSQL = `
SELECT ` + sendColumns + `
FROM send_records
WHERE tenant_id = $1 AND draft_id = $2
ORDER BY created_at, id`

// Create inserts a send record. A second record for the same
// (draft, recipient, method) returns domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, rec *domain.SendRecord) (*domain.SendRecord, error) {
	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, createSQL,
		rec.ID, rec.TenantID, rec.DraftID, rec.MatterID, rec.Recipient, string(rec.Method),
		rec.AuthorizedBy, rec.TransportReceipt, rec.AuditRecordID, rec.CreatedAt.UTC().Truncate(time.Microsecond),
	)
	created, err := scanSend(row)
	if err != nil {
		return nil, postgres.MapError(err, "send_record", rec.ID)
	}
	return created, nil
}

// GetByKey returns the send record for (draft, recipient, method).
// Returns domain.ErrNotFound if none exists.
func (r *Repo) GetByKey(ctx context.Context, tenantID uuid.UUID, key domain.SendKey) (*domain.SendRecord, error) {
	row := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, getByKeySQL,
		tenantID, key.DraftID, key.Recipient, string(key.Method))
	rec, err := scanSend(row)
	if err != nil {
		return nil, postgres.MapError(err, "send_record", key.DraftID)
	}
	return rec, nil
}

// GetByID returns a send record scoped to the tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.SendRecord, error) {
	rec, err := scanSend(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, getByIDSQL, tenantID, id))
	if err != nil {
		return nil, postgres.MapError(err, "send_record", id)
	}
	return rec, nil
}

// TenantOf returns the tenant that owns a send record, whoever asks.
func (r *Repo) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, tenantOfSQL, id).Scan(&tenantID); err != nil {
		return uuid.Nil, postgres.MapError(err, "send_record", id)
	}
	return tenantID, nil
}

// ListByDraft returns the send records of a draft, oldest first.
func (r *Repo) ListByDraft(ctx context.Context, tenantID, draftID uuid.UUID) ([]domain.SendRecord, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, listByDraftSQL, tenantID, draftID)
	if err != nil {
		return nil, fmt.Errorf("list send_records: %w", err)
	}
	defer rows.Close()

	var recs []domain.SendRecord
	for rows.Next() {
		rec, err := scanSend(rows)
		if err != nil {
			return nil, fmt.Errorf("scan send_record: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list send_records: %w", err)
	}
	return recs, nil
}

func scanSend(row pgx.Row) (*domain.SendRecord, error) {
	var (
		rec    domain.SendRecord
		method string
	)
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.DraftID, &rec.MatterID, &rec.Recipient, &method,
		&rec.AuthorizedBy, &rec.TransportReceipt, &rec.AuditRecordID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Method = domain.SendMethod(method)
	return &rec, nil
}
