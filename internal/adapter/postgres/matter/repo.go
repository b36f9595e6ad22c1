// Package matter reads the matter index: matters with their party and
// counterparty names. This service never writes to it.
package matter

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/domain"
)

// Repo provides read access to the matter index backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new matter repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

const getByIDSQL = `
SELECT id, tenant_id, number, status, assigned_professional_id, created_at
FROM matters
WHERE id = $1 AND tenant_id = $2`

const tenantOfSQL = `SELECT tenant_id FROM matters WHERE id = $1`

const partiesSQL = `
SELECT id, matter_id, name, created_at
FROM matter_parties
WHERE matter_id = $1 AND tenant_id = $2
ORDER BY created_at, id`

const counterpartiesSQL = `
SELECT id, matter_id, name, created_at
FROM matter_counterparties
WHERE matter_id = $1 AND tenant_id = $2
ORDER BY created_at, id`

const namesSQL = `
SELECT 'party', p.matter_id, m.number, p.name, p.created_at
FROM matter_parties p JOIN matters m ON m.id = p.matter_id
WHERE p.tenant_id = $1 AND p.matter_id <> $2
UNION ALL
SELECT 'counterparty', c.matter_id, m.number, c.name, c.created_at
FROM matter_counterparties c JOIN matters m ON m.id = c.matter_id
WHERE c.tenant_id = $1 AND c.matter_id <> $2
ORDER BY 5, 3, 4`

// GetByID returns a matter with its parties and counterparties.
// Returns domain.ErrNotFound if it does not exist or belongs to another tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Matter, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	var m domain.Matter
	err := q.QueryRow(ctx, getByIDSQL, id, tenantID).
		Scan(&m.ID, &m.TenantID, &m.Number, &m.Status, &m.AssignedProfessionalID, &m.CreatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "matter", id)
	}

	rows, err := q.Query(ctx, partiesSQL, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get matter parties: %w", err)
	}
	for rows.Next() {
		var p domain.Party
		if err := rows.Scan(&p.ID, &p.MatterID, &p.Name, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan matter party: %w", err)
		}
		m.Parties = append(m.Parties, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get matter parties: %w", err)
	}

	rows, err = q.Query(ctx, counterpartiesSQL, id, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get matter counterparties: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Counterparty
		if err := rows.Scan(&c.ID, &c.MatterID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan matter counterparty: %w", err)
		}
		m.Counterparties = append(m.Counterparties, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get matter counterparties: %w", err)
	}

	return &m, nil
}

// TenantOf returns the tenant that owns a matter, whoever asks.
func (r *Repo) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, tenantOfSQL, id).Scan(&tenantID); err != nil {
		return uuid.Nil, postgres.MapError(err, "matter", id)
	}
	return tenantID, nil
}

// FindMatches returns names of the given kind on other matters of the tenant
// whose normalized form equals normalized, oldest first. A limit <= 0 means
// no limit.
func (r *Repo) FindMatches(ctx context.Context, kind domain.NameKind, tenantID, excludeMatterID uuid.UUID, normalized string, limit int) ([]domain.NameMatch, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	qb := postgres.Builder().
		Select("n.matter_id", "m.number", "n.name", "n.created_at").
		From(table+" n").
		Join("matters m ON m.id = n.matter_id").
		Where(sq.Eq{"n.tenant_id": tenantID, "n.name_normalized": normalized}).
		Where(sq.NotEq{"n.matter_id": excludeMatterID}).
		OrderBy("n.created_at ASC", "m.number ASC", "n.name ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s match query: %w", kind, err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s matches: %w", kind, err)
	}
	defer rows.Close()

	var matches []domain.NameMatch
	for rows.Next() {
		var nm domain.NameMatch
		if err := rows.Scan(&nm.MatterID, &nm.MatterNumber, &nm.Name, &nm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s match: %w", kind, err)
		}
		matches = append(matches, nm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s matches: %w", kind, err)
	}
	return matches, nil
}

// ListNames returns every party and counterparty name on other matters of
// the tenant, ordered by creation time.
func (r *Repo) ListNames(ctx context.Context, tenantID, excludeMatterID uuid.UUID) ([]domain.IndexedName, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, namesSQL, tenantID, excludeMatterID)
	if err != nil {
		return nil, fmt.Errorf("list matter names: %w", err)
	}
	defer rows.Close()

	var names []domain.IndexedName
	for rows.Next() {
		var (
			n    domain.IndexedName
			kind string
		)
		if err := rows.Scan(&kind, &n.MatterID, &n.MatterNumber, &n.Name, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan matter name: %w", err)
		}
		n.Kind = domain.NameKind(kind)
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matter names: %w", err)
	}
	return names, nil
}

func tableFor(kind domain.NameKind) (string, error) {
	switch kind {
	case domain.NameKindParty:
		return "matter_parties", nil
	case domain.NameKindCounterparty:
		return "matter_counterparties", nil
	}
	return "", fmt.Errorf("unknown name kind %q", kind)
}
