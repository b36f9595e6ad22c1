// Package anomaly surfaces review behaviour that suggests approvals were
// rubber-stamped. It only reads the ledger and never blocks an action.
package anomaly

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

type auditReader interface {
	All(ctx context.Context, f domain.AuditFilter) iter.Seq2[domain.AuditRecord, error]
}

// Detector counts quick approvals per actor.
type Detector struct {
	records  auditReader
	minCount int
}

// NewDetector creates a Detector that reports actors with more than minCount
// quick approvals.
func NewDetector(records auditReader, minCount int) *Detector {
	return &Detector{records: records, minCount: minCount}
}

// ScanQuickApprovals counts successful approve-draft and execute-send records
// in window whose review took less than thresholdSeconds, and returns the
// actors whose count exceeds the minimum. Records without a review duration
// or an actor are ignored. Results are ordered by count desc, actor id asc.
func (d *Detector) ScanQuickApprovals(ctx context.Context, tenantID uuid.UUID, window domain.Window, thresholdSeconds float64) ([]domain.ActorCount, error) {
	success := domain.OutcomeSuccess
	f := domain.AuditFilter{
		TenantID: tenantID,
		Actions:  []domain.Action{domain.ActionApproveDraft, domain.ActionExecuteSend},
		Outcome:  &success,
		From:     &window.From,
		To:       &window.To,
	}

	counts := map[uuid.UUID]int{}
	for rec, err := range d.records.All(ctx, f) {
		if err != nil {
			return nil, fmt.Errorf("scan quick approvals: %w", err)
		}
		if rec.ActorID == nil || !window.Contains(rec.OccurredAt) {
			continue
		}
		secs, ok := domain.DetailFloat(rec.Detail, domain.DetailReviewDurationSeconds)
		if !ok || secs >= thresholdSeconds {
			continue
		}
		counts[*rec.ActorID]++
	}

	out := []domain.ActorCount{}
	for actor, n := range counts {
		if n > d.minCount {
			out = append(out, domain.ActorCount{ActorID: actor, Count: n})
		}
	}
	slices.SortFunc(out, func(a, b domain.ActorCount) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			cmp.Compare(a.ActorID.String(), b.ActorID.String()),
		)
	})
	return out, nil
}
