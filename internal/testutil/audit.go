package testutil

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// AuditStore is an in-memory audit ledger with the same chaining rules as
// the PostgreSQL one.
type AuditStore struct {
	st *state
}

// FailAppendWhen installs a hook consulted before every append; a non-nil
// result fails the append. Pass nil to remove it.
func (a *AuditStore) FailAppendWhen(hook func(domain.AuditRecord) error) {
	a.st.mu.Lock()
	defer a.st.mu.Unlock()
	a.st.appendHook = hook
}

// Append assigns seq, time and hashes and stores rec.
func (a *AuditStore) Append(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	err := a.st.write(ctx, func() error {
		if a.st.appendHook != nil {
			if err := a.st.appendHook(rec); err != nil {
				return err
			}
		}
		if rec.TenantID == uuid.Nil {
			return fmt.Errorf("audit_record: tenant_id is required")
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.Detail == nil {
			rec.Detail = map[string]any{}
		}

		// Store the detail as the database would return it.
		raw, err := domain.CanonicalJSON(rec.Detail)
		if err != nil {
			return err
		}
		if rec.Detail, err = domain.DecodeDetail(raw); err != nil {
			return err
		}

		chain := a.st.records[rec.TenantID]
		var prevHash string
		at := a.st.now().UTC().Truncate(time.Microsecond)
		if n := len(chain); n > 0 {
			last := chain[n-1]
			prevHash = last.Hash
			if at.Before(last.OccurredAt) {
				at = last.OccurredAt
			}
		}

		rec.Seq = int64(len(chain)) + 1
		rec.OccurredAt = at
		rec.PrevHash = prevHash
		if rec.Hash, err = rec.ChainHash(prevHash); err != nil {
			return err
		}
		a.st.records[rec.TenantID] = append(chain, rec)
		return nil
	})
	if err != nil {
		return domain.AuditRecord{}, domain.NewAuditWriteError(err)
	}
	return rec, nil
}

// Query filters and pages like the PostgreSQL ledger. The page token is the
// last returned seq.
func (a *AuditStore) Query(ctx context.Context, f domain.AuditFilter) (domain.AuditPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditPage{}, err
	}

	var after int64
	if f.PageToken != "" {
		n, err := strconv.ParseInt(f.PageToken, 10, 64)
		if err != nil || n < 0 {
			return domain.AuditPage{}, domain.NewValidationError("page_token", "invalid")
		}
		after = n
	}
	limit := domain.ClampAuditLimit(f.Limit)

	var page domain.AuditPage
	a.st.read(func() {
		for _, rec := range a.st.records[f.TenantID] {
			if rec.Seq <= after || !matches(rec, f) {
				continue
			}
			if len(page.Records) == limit {
				page.NextToken = strconv.FormatInt(page.Records[limit-1].Seq, 10)
				return
			}
			page.Records = append(page.Records, rec)
		}
	})
	return page, nil
}

func matches(rec domain.AuditRecord, f domain.AuditFilter) bool {
	switch {
	case f.ActorID != nil && (rec.ActorID == nil || *rec.ActorID != *f.ActorID):
		return false
	case len(f.Actions) > 0 && !slices.Contains(f.Actions, rec.Action):
		return false
	case f.ResourceType != nil && rec.ResourceType != *f.ResourceType:
		return false
	case f.ResourceID != nil && (rec.ResourceID == nil || *rec.ResourceID != *f.ResourceID):
		return false
	case f.MatterID != nil && (rec.MatterID == nil || *rec.MatterID != *f.MatterID):
		return false
	case f.Outcome != nil && rec.Outcome != *f.Outcome:
		return false
	case f.From != nil && rec.OccurredAt.Before(*f.From):
		return false
	case f.To != nil && !rec.OccurredAt.Before(*f.To):
		return false
	}
	return true
}

// Chain returns up to limit records with seq > afterSeq.
func (a *AuditStore) Chain(_ context.Context, tenantID uuid.UUID, afterSeq int64, limit int) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	a.st.read(func() {
		for _, rec := range a.st.records[tenantID] {
			if rec.Seq > afterSeq && len(out) < limit {
				out = append(out, rec)
			}
		}
	})
	return out, nil
}

// Head returns the last seq and hash of a tenant's chain.
func (a *AuditStore) Head(_ context.Context, tenantID uuid.UUID) (int64, string, error) {
	var (
		seq  int64
		hash string
	)
	a.st.read(func() {
		if chain := a.st.records[tenantID]; len(chain) > 0 {
			seq, hash = chain[len(chain)-1].Seq, chain[len(chain)-1].Hash
		}
	})
	return seq, hash, nil
}

// GetByID returns a record by id within a tenant.
func (a *AuditStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (domain.AuditRecord, error) {
	var (
		rec   domain.AuditRecord
		found bool
	)
	a.st.read(func() {
		for _, r := range a.st.records[tenantID] {
			if r.ID == id {
				rec, found = r, true
				return
			}
		}
	})
	if !found {
		return domain.AuditRecord{}, fmt.Errorf("audit_record %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// Records returns every record of a tenant in seq order.
func (a *AuditStore) Records(tenantID uuid.UUID) []domain.AuditRecord {
	var out []domain.AuditRecord
	a.st.read(func() {
		out = append(out, a.st.records[tenantID]...)
	})
	return out
}

// Count returns how many records of a tenant match action and outcome.
// An empty action or outcome matches any.
func (a *AuditStore) Count(tenantID uuid.UUID, action domain.Action, outcome domain.Outcome) int {
	n := 0
	for _, rec := range a.Records(tenantID) {
		if (action == "" || rec.Action == action) && (outcome == "" || rec.Outcome == outcome) {
			n++
		}
	}
	return n
}

// Tamper replaces the stored record at seq using edit. It bypasses the
// append-only rules to let tests exercise chain verification.
func (a *AuditStore) Tamper(tenantID uuid.UUID, seq int64, edit func(*domain.AuditRecord)) {
	a.st.read(func() {
		chain := a.st.records[tenantID]
		for i := range chain {
			if chain[i].Seq == seq {
				edit(&chain[i])
			}
		}
	})
}

// Delete removes the stored record at seq, bypassing the append-only rules.
func (a *AuditStore) Delete(tenantID uuid.UUID, seq int64) {
	a.st.read(func() {
		a.st.records[tenantID] = slices.DeleteFunc(a.st.records[tenantID], func(r domain.AuditRecord) bool {
			return r.Seq == seq
		})
	})
}
