package testutil

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// DraftStore is an in-memory draft repository with compare-and-swap updates.
type DraftStore struct {
	st *state
}

func cloneDraft(d domain.Draft) *domain.Draft {
	d.Flags = slices.Clone(d.Flags)
	d.Content = slices.Clone(d.Content)
	return &d
}

// Put stores d as-is, replacing any draft with the same id.
func (s *DraftStore) Put(d domain.Draft) {
	s.st.read(func() {
		s.st.drafts[d.ID] = *cloneDraft(d)
	})
}

// GetByID returns a draft scoped to the tenant.
func (s *DraftStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Draft, error) {
	var (
		d  domain.Draft
		ok bool
	)
	s.st.read(func() { d, ok = s.st.drafts[id] })
	if !ok || d.TenantID != tenantID {
		return nil, fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	return cloneDraft(d), nil
}

// TenantOf returns the tenant that owns a draft.
func (s *DraftStore) TenantOf(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	var (
		d  domain.Draft
		ok bool
	)
	s.st.read(func() { d, ok = s.st.drafts[id] })
	if !ok {
		return uuid.Nil, fmt.Errorf("draft %s: %w", id, domain.ErrNotFound)
	}
	return d.TenantID, nil
}

// Create inserts a new draft.
func (s *DraftStore) Create(ctx context.Context, d *domain.Draft) (*domain.Draft, error) {
	var out *domain.Draft
	err := s.st.write(ctx, func() error {
		if _, exists := s.st.drafts[d.ID]; exists {
			return fmt.Errorf("draft %s: %w", d.ID, domain.ErrAlreadyExists)
		}
		if d.Flags == nil {
			d.Flags = []domain.Flag{}
		}
		s.st.drafts[d.ID] = *cloneDraft(*d)
		out = cloneDraft(*d)
		return nil
	})
	return out, err
}

// Transition applies t if the draft is still PENDING at t.ExpectedVersion.
func (s *DraftStore) Transition(ctx context.Context, t domain.DraftTransition) (*domain.Draft, error) {
	var out *domain.Draft
	err := s.st.write(ctx, func() error {
		d, ok := s.st.drafts[t.DraftID]
		if !ok || d.TenantID != t.TenantID || d.Version != t.ExpectedVersion || d.Status != domain.DraftStatusPending {
			return fmt.Errorf("draft %s: %w", t.DraftID, domain.ErrStaleVersion)
		}
		d.Status = t.Status
		d.Version = t.Version
		if t.Content != nil {
			d.Content = slices.Clone(t.Content)
		}
		if t.VersionedAt != nil {
			d.VersionedAt = *t.VersionedAt
		}
		at, by := t.TransitionedAt, t.TransitionedBy
		d.LastTransitionedAt = &at
		d.LastTransitionedBy = &by
		s.st.drafts[d.ID] = d
		out = cloneDraft(d)
		return nil
	})
	return out, err
}

// UpdateFlags replaces the flags if the draft is still PENDING at expectedVersion.
func (s *DraftStore) UpdateFlags(ctx context.Context, tenantID, draftID uuid.UUID, expectedVersion int, flags []domain.Flag) (*domain.Draft, error) {
	var out *domain.Draft
	err := s.st.write(ctx, func() error {
		d, ok := s.st.drafts[draftID]
		if !ok || d.TenantID != tenantID || d.Version != expectedVersion || d.Status != domain.DraftStatusPending {
			return fmt.Errorf("draft %s: %w", draftID, domain.ErrStaleVersion)
		}
		d.Flags = slices.Clone(flags)
		s.st.drafts[d.ID] = d
		out = cloneDraft(d)
		return nil
	})
	return out, err
}

// SaveRevision keeps the content of a superseded version.
func (s *DraftStore) SaveRevision(ctx context.Context, rev domain.DraftRevision) error {
	return s.st.write(ctx, func() error {
		for _, r := range s.st.revisions[rev.DraftID] {
			if r.Version == rev.Version {
				return fmt.Errorf("draft_revision %s: %w", rev.DraftID, domain.ErrAlreadyExists)
			}
		}
		rev.Content = slices.Clone(rev.Content)
		rev.CreatedAt = rev.CreatedAt.UTC().Truncate(time.Microsecond)
		s.st.revisions[rev.DraftID] = append(s.st.revisions[rev.DraftID], rev)
		return nil
	})
}

// ListRevisions returns the superseded versions of a draft.
func (s *DraftStore) ListRevisions(_ context.Context, tenantID, draftID uuid.UUID) ([]domain.DraftRevision, error) {
	var out []domain.DraftRevision
	s.st.read(func() {
		if d, ok := s.st.drafts[draftID]; ok && d.TenantID == tenantID {
			out = slices.Clone(s.st.revisions[draftID])
		}
	})
	return out, nil
}
