package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// MatterStore is an in-memory matter index.
type MatterStore struct {
	st *state
}

// AddMatter registers a matter with the given party and counterparty names
// and returns it.
func (s *MatterStore) AddMatter(tenantID uuid.UUID, number string, owner *uuid.UUID, createdAt time.Time, parties, counterparties []string) domain.Matter {
	m := domain.Matter{
		ID:                     uuid.New(),
		TenantID:               tenantID,
		Number:                 number,
		Status:                 "open",
		AssignedProfessionalID: owner,
		CreatedAt:              createdAt,
	}
	for _, name := range parties {
		m.Parties = append(m.Parties, domain.Party{ID: uuid.New(), MatterID: m.ID, Name: name, CreatedAt: createdAt})
	}
	for _, name := range counterparties {
		m.Counterparties = append(m.Counterparties, domain.Counterparty{ID: uuid.New(), MatterID: m.ID, Name: name, CreatedAt: createdAt})
	}
	s.st.read(func() { s.st.matters[m.ID] = m })
	return m
}

// GetByID returns a matter scoped to the tenant.
func (s *MatterStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Matter, error) {
	var (
		m  domain.Matter
		ok bool
	)
	s.st.read(func() { m, ok = s.st.matters[id] })
	if !ok || m.TenantID != tenantID {
		return nil, fmt.Errorf("matter %s: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

// TenantOf returns the tenant that owns a matter.
func (s *MatterStore) TenantOf(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	var (
		m  domain.Matter
		ok bool
	)
	s.st.read(func() { m, ok = s.st.matters[id] })
	if !ok {
		return uuid.Nil, fmt.Errorf("matter %s: %w", id, domain.ErrNotFound)
	}
	return m.TenantID, nil
}

// FindMatches returns names of the given kind on other matters of the tenant
// whose normalized form equals normalized, oldest first.
func (s *MatterStore) FindMatches(_ context.Context, kind domain.NameKind, tenantID, excludeMatterID uuid.UUID, normalized string, limit int) ([]domain.NameMatch, error) {
	var out []domain.NameMatch
	for _, n := range s.names(tenantID, excludeMatterID) {
		if n.Kind == kind && domain.NormalizeText(n.Name) == normalized {
			out = append(out, n.NameMatch)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListNames returns every name on other matters of the tenant.
func (s *MatterStore) ListNames(_ context.Context, tenantID, excludeMatterID uuid.UUID) ([]domain.IndexedName, error) {
	return s.names(tenantID, excludeMatterID), nil
}

func (s *MatterStore) names(tenantID, excludeMatterID uuid.UUID) []domain.IndexedName {
	var out []domain.IndexedName
	s.st.read(func() {
		for _, m := range s.st.matters {
			if m.TenantID != tenantID || m.ID == excludeMatterID {
				continue
			}
			for _, p := range m.Parties {
				out = append(out, domain.IndexedName{Kind: domain.NameKindParty, NameMatch: domain.NameMatch{
					MatterID: m.ID, MatterNumber: m.Number, Name: p.Name, CreatedAt: p.CreatedAt,
				}})
			}
			for _, c := range m.Counterparties {
				out = append(out, domain.IndexedName{Kind: domain.NameKindCounterparty, NameMatch: domain.NameMatch{
					MatterID: m.ID, MatterNumber: m.Number, Name: c.Name, CreatedAt: c.CreatedAt,
				}})
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.IndexedName) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.MatterNumber, b.MatterNumber),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}
