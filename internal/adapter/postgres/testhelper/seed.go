package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casegate/casegate-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// MatterSeed describes a matter to insert.
type MatterSeed struct {
	TenantID       uuid.UUID
	Number         string // generated when empty
	OwnerID        *uuid.UUID
	Parties        []string
	Counterparties []string
	CreatedAt      time.Time // now when zero
}

// SeedMatter inserts a matter with its party and counterparty names and
// returns the populated domain.Matter.
func SeedMatter(t *testing.T, pool *pgxpool.Pool, seed MatterSeed) domain.Matter {
	t.Helper()
	ctx := context.Background()

	createdAt := seed.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC().Truncate(time.Microsecond)

	m := domain.Matter{
		ID:                     uuid.New(),
		TenantID:               seed.TenantID,
		Number:                 seed.Number,
		Status:                 "open",
		AssignedProfessionalID: seed.OwnerID,
		CreatedAt:              createdAt,
	}
	if m.Number == "" {
		m.Number = "M-" + uniqueSuffix()
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO matters (id, tenant_id, number, status, assigned_professional_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.TenantID, m.Number, m.Status, m.AssignedProfessionalID, m.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedMatter insert matter: %v", err)
	}

	for _, name := range seed.Parties {
		p := domain.Party{ID: uuid.New(), MatterID: m.ID, Name: name, CreatedAt: createdAt}
		_, err := pool.Exec(ctx,
			`INSERT INTO matter_parties (id, tenant_id, matter_id, name, name_normalized, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, m.TenantID, m.ID, p.Name, domain.NormalizeText(p.Name), p.CreatedAt,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedMatter insert party %q: %v", name, err)
		}
		m.Parties = append(m.Parties, p)
	}

	for _, name := range seed.Counterparties {
		c := domain.Counterparty{ID: uuid.New(), MatterID: m.ID, Name: name, CreatedAt: createdAt}
		_, err := pool.Exec(ctx,
			`INSERT INTO matter_counterparties (id, tenant_id, matter_id, name, name_normalized, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, m.TenantID, m.ID, c.Name, domain.NormalizeText(c.Name), c.CreatedAt,
		)
		if err != nil {
			t.Fatalf("testhelper: SeedMatter insert counterparty %q: %v", name, err)
		}
		m.Counterparties = append(m.Counterparties, c)
	}

	return m
}

// SeedDraft inserts a PENDING draft, version 1, for the matter.
func SeedDraft(t *testing.T, pool *pgxpool.Pool, m domain.Matter, flags ...domain.Flag) domain.Draft {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	d := domain.Draft{
		ID:          uuid.New(),
		TenantID:    m.TenantID,
		MatterID:    m.ID,
		Type:        domain.DraftTypeNotice,
		Version:     1,
		Status:      domain.DraftStatusPending,
		Content:     []byte("draft body " + uniqueSuffix()),
		Flags:       flags,
		CreatedAt:   now,
		VersionedAt: now,
	}
	if d.Flags == nil {
		d.Flags = []domain.Flag{}
	}

	flagsJSON, err := json.Marshal(d.Flags)
	if err != nil {
		t.Fatalf("testhelper: SeedDraft marshal flags: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO drafts (id, tenant_id, matter_id, type, version, status, content, flags, created_at, versioned_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.TenantID, d.MatterID, string(d.Type), d.Version, string(d.Status), d.Content, flagsJSON, d.CreatedAt, d.VersionedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedDraft insert: %v", err)
	}

	return d
}
