// Package audit implements the append-only audit ledger using PostgreSQL.
// Records form one hash chain per tenant; appends serialize on the tenant's
// chain head row.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/domain"
)

// Repo provides audit ledger persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
	tx *postgres.TxManager
}

// New creates a new audit repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db, tx: postgres.NewTxManager(db)}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

var recordColumns = []string{
	"tenant_id", "seq", "id", "occurred_at", "actor_id", "actor_role", "action",
	"resource_type", "resource_id", "matter_id", "outcome", "detail", "origin",
	"corrects_id", "prev_hash", "hash",
}

const ensureHeadSQL = `
INSERT INTO audit_chain_heads (tenant_id, last_seq, last_hash, last_occurred_at)
VALUES ($1, 0, '', 'epoch')
ON CONFLICT (tenant_id) DO NOTHING`

const lockHeadSQL = `
SELECT last_seq, last_hash, last_occurred_at, clock_timestamp()
FROM audit_chain_heads
WHERE tenant_id = $1
FOR UPDATE`

const insertSQL = `
INSERT INTO audit_records (
    tenant_id, seq, id, occurred_at, actor_id, actor_role, action,
    resource_type, resource_id, matter_id, outcome, detail, origin,
    corrects_id, prev_hash, hash
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const advanceHeadSQL = `
UPDATE audit_chain_heads
SET last_seq = $2, last_hash = $3, last_occurred_at = $4
WHERE tenant_id = $1`

const headSQL = `
SELECT last_seq, last_hash FROM audit_chain_heads WHERE tenant_id = $1`

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Append durably writes rec as the next link of its tenant's chain and returns
// it with ID, Seq, OccurredAt, PrevHash and Hash assigned. It joins the
// transaction carried by ctx, if any, so the record commits or rolls back
// together with the caller's writes. Every failure is an ErrAuditWrite.
func (r *Repo) Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	if rec.TenantID == uuid.Nil {
		return domain.AuditRecord{}, domain.NewAuditWriteError(fmt.Errorf("audit_record: tenant_id is required"))
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Detail == nil {
		rec.Detail = map[string]any{}
	}

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		if _, err := q.Exec(ctx, ensureHeadSQL, rec.TenantID); err != nil {
			return fmt.Errorf("ensure chain head: %w", err)
		}

		var (
			lastSeq  int64
			lastHash string
			lastAt   time.Time
			now      time.Time
		)
		if err := q.QueryRow(ctx, lockHeadSQL, rec.TenantID).Scan(&lastSeq, &lastHash, &lastAt, &now); err != nil {
			return fmt.Errorf("lock chain head: %w", err)
		}

		// occurred_at never goes backwards within a chain, so time order and
		// sequence order agree.
		occurredAt := now.UTC().Truncate(time.Microsecond)
		if occurredAt.Before(lastAt) {
			occurredAt = lastAt.UTC()
		}

		rec.Seq = lastSeq + 1
		rec.OccurredAt = occurredAt
		rec.PrevHash = lastHash

		hash, err := rec.ChainHash(lastHash)
		if err != nil {
			return err
		}
		rec.Hash = hash

		detail, err := domain.CanonicalJSON(rec.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}

		_, err = q.Exec(ctx, insertSQL,
			rec.TenantID, rec.Seq, rec.ID, rec.OccurredAt, rec.ActorID, rolePtr(rec.ActorRole),
			string(rec.Action), string(rec.ResourceType), rec.ResourceID, rec.MatterID,
			string(rec.Outcome), []byte(detail), rec.Origin, rec.CorrectsID, rec.PrevHash, rec.Hash,
		)
		if err != nil {
			return postgres.MapError(err, "audit_record", rec.ID)
		}

		if _, err := q.Exec(ctx, advanceHeadSQL, rec.TenantID, rec.Seq, rec.Hash, rec.OccurredAt); err != nil {
			return fmt.Errorf("advance chain head: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.AuditRecord{}, domain.NewAuditWriteError(err)
	}

	return rec, nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// Query returns one page of records matching f, ordered by (occurred_at, seq).
// A malformed page token is a validation error.
func (r *Repo) Query(ctx context.Context, f domain.AuditFilter) (domain.AuditPage, error) {
	limit := domain.ClampAuditLimit(f.Limit)

	qb := postgres.Builder().
		Select(recordColumns...).
		From("audit_records").
		Where(sq.Eq{"tenant_id": f.TenantID})

	if f.ActorID != nil {
		qb = qb.Where(sq.Eq{"actor_id": *f.ActorID})
	}
	if len(f.Actions) > 0 {
		actions := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			actions[i] = string(a)
		}
		qb = qb.Where(sq.Eq{"action": actions})
	}
	if f.ResourceType != nil {
		qb = qb.Where(sq.Eq{"resource_type": string(*f.ResourceType)})
	}
	if f.ResourceID != nil {
		qb = qb.Where(sq.Eq{"resource_id": *f.ResourceID})
	}
	if f.MatterID != nil {
		qb = qb.Where(sq.Eq{"matter_id": *f.MatterID})
	}
	if f.Outcome != nil {
		qb = qb.Where(sq.Eq{"outcome": string(*f.Outcome)})
	}
	if f.From != nil {
		qb = qb.Where(sq.GtOrEq{"occurred_at": *f.From})
	}
	if f.To != nil {
		qb = qb.Where(sq.Lt{"occurred_at": *f.To})
	}
	if f.PageToken != "" {
		c, err := decodeCursor(f.PageToken)
		if err != nil {
			return domain.AuditPage{}, domain.NewValidationError("page_token", "invalid")
		}
		qb = qb.Where(sq.Expr("(occurred_at, seq) > (?, ?)", c.OccurredAt, c.Seq))
	}

	qb = qb.OrderBy("occurred_at ASC", "seq ASC").Limit(uint64(limit + 1))

	query, args, err := qb.ToSql()
	if err != nil {
		return domain.AuditPage{}, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return domain.AuditPage{}, fmt.Errorf("query audit_records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return domain.AuditPage{}, fmt.Errorf("query audit_records: %w", err)
	}

	page := domain.AuditPage{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		last := page.Records[limit-1]
		page.NextToken = encodeCursor(cursor{OccurredAt: last.OccurredAt, Seq: last.Seq})
	}
	return page, nil
}

// Chain returns up to limit records of a tenant with seq > afterSeq in
// sequence order.
func (r *Repo) Chain(ctx context.Context, tenantID uuid.UUID, afterSeq int64, limit int) ([]domain.AuditRecord, error) {
	query, args, err := postgres.Builder().
		Select(recordColumns...).
		From("audit_records").
		Where(sq.Eq{"tenant_id": tenantID}).
		Where(sq.Gt{"seq": afterSeq}).
		OrderBy("seq ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chain query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read audit chain: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("read audit chain: %w", err)
	}
	return records, nil
}

// Head returns the last sequence number and hash recorded for a tenant.
// A tenant without records has seq 0 and an empty hash.
func (r *Repo) Head(ctx context.Context, tenantID uuid.UUID) (int64, string, error) {
	var (
		seq  int64
		hash string
	)
	err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, headSQL, tenantID).Scan(&seq, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", nil
		}
		return 0, "", fmt.Errorf("read chain head: %w", err)
	}
	return seq, hash, nil
}

// GetByID returns a record by id within a tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.AuditRecord, error) {
	query, args, err := postgres.Builder().
		Select(recordColumns...).
		From("audit_records").
		Where(sq.Eq{"tenant_id": tenantID, "id": id}).
		ToSql()
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("build audit get: %w", err)
	}

	rec, err := scanRecord(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return domain.AuditRecord{}, postgres.MapError(err, "audit_record", id)
	}
	return rec, nil
}

// ---------------------------------------------------------------------------
// Scanning
// ---------------------------------------------------------------------------

func scanRecord(row pgx.Row) (domain.AuditRecord, error) {
	var (
		rec          domain.AuditRecord
		actorRole    *string
		action       string
		resourceType string
		outcome      string
		detail       []byte
	)
	err := row.Scan(
		&rec.TenantID, &rec.Seq, &rec.ID, &rec.OccurredAt, &rec.ActorID, &actorRole, &action,
		&resourceType, &rec.ResourceID, &rec.MatterID, &outcome, &detail, &rec.Origin,
		&rec.CorrectsID, &rec.PrevHash, &rec.Hash,
	)
	if err != nil {
		return domain.AuditRecord{}, err
	}

	rec.OccurredAt = rec.OccurredAt.UTC()
	rec.Action = domain.Action(action)
	rec.ResourceType = domain.ResourceType(resourceType)
	rec.Outcome = domain.Outcome(outcome)
	if actorRole != nil {
		role := domain.Role(*actorRole)
		rec.ActorRole = &role
	}

	rec.Detail, err = domain.DecodeDetail(detail)
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("audit_record %s decode detail: %w", rec.ID, err)
	}
	return rec, nil
}

func scanRecords(rows pgx.Rows) ([]domain.AuditRecord, error) {
	var records []domain.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func rolePtr(r *domain.Role) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}
