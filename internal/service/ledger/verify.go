package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
)

// ChainBreak describes the first inconsistency found in a tenant chain.
type ChainBreak struct {
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// Chain break reasons.
const (
	BreakSeqGap       = "seq_gap"
	BreakPrevHash     = "prev_hash_mismatch"
	BreakHash         = "hash_mismatch"
	BreakTimeOrder    = "time_order"
	BreakHeadMismatch = "head_mismatch"
)

// ChainReport is the result of verifying one tenant chain.
type ChainReport struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	Records  int64       `json:"records"`
	HeadSeq  int64       `json:"head_seq"`
	OK       bool        `json:"ok"`
	Break    *ChainBreak `json:"break,omitempty"`
}

// VerifyChain checks the actor's tenant chain and records the result.
func (s *Service) VerifyChain(ctx context.Context, tenantID uuid.UUID) (ChainReport, error) {
	actor, err := s.guard.Actor(ctx)
	if err != nil {
		return ChainReport{}, err
	}
	if tenantID == uuid.Nil {
		tenantID = actor.TenantID
	}

	if err := s.guard.Check(ctx, actor, domain.ActionVerifyAuditChain, policy.ResourceRef{TenantID: tenantID}, auditLogSubject()); err != nil {
		return ChainReport{}, err
	}

	report, err := s.Verify(ctx, tenantID)
	if err != nil {
		return ChainReport{}, err
	}

	detail := map[string]any{
		"records":  report.Records,
		"head_seq": report.HeadSeq,
		"ok":       report.OK,
	}
	if report.Break != nil {
		detail["break_seq"] = report.Break.Seq
		detail["break_reason"] = report.Break.Reason
	}
	if _, err := s.guard.Record(ctx, actor, domain.ActionVerifyAuditChain, domain.OutcomeSuccess, auditLogSubject(), detail); err != nil {
		return ChainReport{}, err
	}
	return report, nil
}

// Verify recomputes a tenant chain in seq order and reports the first break:
// a missing or reordered record, an edited record, or a head that does not
// match the last record. The verification request itself is not recorded.
func (s *Service) Verify(ctx context.Context, tenantID uuid.UUID) (ChainReport, error) {
	headSeq, headHash, err := s.store.Head(ctx, tenantID)
	if err != nil {
		return ChainReport{}, fmt.Errorf("verify chain: %w", err)
	}

	report := ChainReport{TenantID: tenantID, HeadSeq: headSeq, OK: true}
	fail := func(seq int64, reason string) (ChainReport, error) {
		report.OK = false
		report.Break = &ChainBreak{Seq: seq, Reason: reason}
		s.log.WarnContext(ctx, "audit chain broken",
			slog.String("tenant_id", tenantID.String()),
			slog.Int64("seq", seq),
			slog.String("reason", reason),
		)
		return report, nil
	}

	var (
		last     domain.AuditRecord
		lastSeq  int64
		lastHash string
	)
	for {
		batch, err := s.store.Chain(ctx, tenantID, lastSeq, chainBatch)
		if err != nil {
			return ChainReport{}, fmt.Errorf("verify chain: %w", err)
		}

		for _, rec := range batch {
			switch {
			case rec.Seq != lastSeq+1:
				return fail(lastSeq+1, BreakSeqGap)
			case rec.PrevHash != lastHash:
				return fail(rec.Seq, BreakPrevHash)
			case lastSeq > 0 && rec.OccurredAt.Before(last.OccurredAt):
				return fail(rec.Seq, BreakTimeOrder)
			}

			hash, err := rec.ChainHash(lastHash)
			if err != nil {
				return ChainReport{}, fmt.Errorf("verify chain: seq %d: %w", rec.Seq, err)
			}
			if hash != rec.Hash {
				return fail(rec.Seq, BreakHash)
			}

			report.Records++
			last, lastSeq, lastHash = rec, rec.Seq, rec.Hash
		}

		if len(batch) < chainBatch {
			break
		}
	}

	if lastSeq != headSeq || lastHash != headHash {
		return fail(lastSeq+1, BreakHeadMismatch)
	}
	return report, nil
}
