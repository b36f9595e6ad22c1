package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// SendStore is an in-memory send record repository.
type SendStore struct {
	st *state
}

// FailCreateWhen installs a hook consulted before every insert; a non-nil
// result fails the insert. Pass nil to remove it.
func (s *SendStore) FailCreateWhen(hook func(domain.SendRecord) error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.sendHook = hook
}

// Create inserts rec; (draft, recipient, method) is unique.
func (s *SendStore) Create(ctx context.Context, rec *domain.SendRecord) (*domain.SendRecord, error) {
	err := s.st.write(ctx, func() error {
		if s.st.sendHook != nil {
			if err := s.st.sendHook(*rec); err != nil {
				return err
			}
		}
		for _, existing := range s.st.sends {
			if existing.DraftID == rec.DraftID && existing.Recipient == rec.Recipient && existing.Method == rec.Method {
				return fmt.Errorf("send_record %s: %w", rec.ID, domain.ErrAlreadyExists)
			}
		}
		s.st.sends[rec.ID] = *rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := *rec
	return &out, nil
}

// GetByKey returns the send record for (draft, recipient, method).
func (s *SendStore) GetByKey(_ context.Context, tenantID uuid.UUID, key domain.SendKey) (*domain.SendRecord, error) {
	var (
		out   domain.SendRecord
		found bool
	)
	s.st.read(func() {
		for _, rec := range s.st.sends {
			if rec.TenantID == tenantID && rec.DraftID == key.DraftID && rec.Recipient == key.Recipient && rec.Method == key.Method {
				out, found = rec, true
				return
			}
		}
	})
	if !found {
		return nil, fmt.Errorf("send_record %s: %w", key.DraftID, domain.ErrNotFound)
	}
	return &out, nil
}

// GetByID returns a send record scoped to the tenant.
func (s *SendStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.SendRecord, error) {
	var (
		rec domain.SendRecord
		ok  bool
	)
	s.st.read(func() { rec, ok = s.st.sends[id] })
	if !ok || rec.TenantID != tenantID {
		return nil, fmt.Errorf("send_record %s: %w", id, domain.ErrNotFound)
	}
	return &rec, nil
}

// TenantOf returns the tenant that owns a send record.
func (s *SendStore) TenantOf(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	var (
		rec domain.SendRecord
		ok  bool
	)
	s.st.read(func() { rec, ok = s.st.sends[id] })
	if !ok {
		return uuid.Nil, fmt.Errorf("send_record %s: %w", id, domain.ErrNotFound)
	}
	return rec.TenantID, nil
}

// ListByDraft returns the send records of a draft, oldest first.
func (s *SendStore) ListByDraft(_ context.Context, tenantID, draftID uuid.UUID) ([]domain.SendRecord, error) {
	var out []domain.SendRecord
	s.st.read(func() {
		for _, rec := range s.st.sends {
			if rec.TenantID == tenantID && rec.DraftID == draftID {
				out = append(out, rec)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.SendRecord) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}

// All returns every send record of a tenant.
func (s *SendStore) All(tenantID uuid.UUID) []domain.SendRecord {
	var out []domain.SendRecord
	s.st.read(func() {
		for _, rec := range s.st.sends {
			if rec.TenantID == tenantID {
				out = append(out, rec)
			}
		}
	})
	return out
}
