package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casegate/casegate-backend/internal/domain"
	"github.com/casegate/casegate-backend/internal/policy"
	"github.com/casegate/casegate-backend/internal/service/access"
	"github.com/casegate/casegate-backend/internal/service/anomaly"
	"github.com/casegate/casegate-backend/internal/service/ledger"
	"github.com/casegate/casegate-backend/internal/testutil"
)

type testLedger struct {
	*ledger.Service
	*anomaly.Detector
}

func newTestLedger(t *testing.T) (*testutil.Store, Opener) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules, err := policy.DefaultRules()
	require.NoError(t, err)

	store := testutil.NewStore()
	svc := ledger.NewService(log, store.Audit, access.NewGuard(log, policy.NewEngine(rules), store.Audit, time.Second))
	l := testLedger{Service: svc, Detector: anomaly.NewDetector(svc, 1)}

	return store, func(context.Context) (Ledger, func(), error) {
		return l, func() {}, nil
	}
}

func approve(t *testing.T, store *testutil.Store, tenant, actor uuid.UUID, reviewSeconds float64) {
	t.Helper()
	draftID := uuid.New()
	role := domain.RoleSupervisingProfessional
	_, err := store.Audit.Append(context.Background(), domain.AuditRecord{
		TenantID:     tenant,
		ActorID:      &actor,
		ActorRole:    &role,
		Action:       domain.ActionApproveDraft,
		ResourceType: domain.ResourceTypeDraft,
		ResourceID:   &draftID,
		Outcome:      domain.OutcomeSuccess,
		Detail: map[string]any{
			domain.DetailToStatus:              string(domain.DraftStatusApproved),
			domain.DetailVersion:               2,
			domain.DetailReviewDurationSeconds: reviewSeconds,
		},
	})
	require.NoError(t, err)
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(open)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVerify_IntactChain(t *testing.T) {
	t.Parallel()
	store, open := newTestLedger(t)
	tenant := uuid.New()
	approve(t, store, tenant, uuid.New(), 120)
	approve(t, store, tenant, uuid.New(), 90)

	out, err := run(t, open, "verify", "--tenant", tenant.String())
	require.NoError(t, err)
	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "chain OK")
}

func TestVerify_BrokenChainExitsWithFailure(t *testing.T) {
	t.Parallel()
	store, open := newTestLedger(t)
	tenant := uuid.New()
	approve(t, store, tenant, uuid.New(), 120)
	approve(t, store, tenant, uuid.New(), 90)
	store.Audit.Tamper(tenant, 1, func(r *domain.AuditRecord) { r.Origin = "203.0.113.1" })

	out, err := run(t, open, "verify", "--tenant", tenant.String(), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var report ledger.ChainReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.OK)
	require.NotNil(t, report.Break)
	assert.Equal(t, int64(1), report.Break.Seq)
}

func TestReplay_Text(t *testing.T) {
	t.Parallel()
	store, open := newTestLedger(t)
	tenant := uuid.New()
	approve(t, store, tenant, uuid.New(), 120)

	out, err := run(t, open, "replay", "--tenant", tenant.String())
	require.NoError(t, err)
	assert.Contains(t, out, "1 records replayed")
	assert.Contains(t, out, "APPROVED: 1")
	assert.Contains(t, out, "sends: 0")
}

func TestQuickApprovals_JSON(t *testing.T) {
	t.Parallel()
	store, open := newTestLedger(t)
	tenant := uuid.New()
	hasty := uuid.New()
	careful := uuid.New()
	for range 3 {
		approve(t, store, tenant, hasty, 4)
	}
	approve(t, store, tenant, careful, 4)
	approve(t, store, tenant, careful, 300)

	out, err := run(t, open, "quick-approvals", "--tenant", tenant.String(), "--threshold", "10s", "--format", "json")
	require.NoError(t, err)

	var res quickApprovalsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 10.0, res.ThresholdSeconds)
	require.Len(t, res.Actors, 1)
	assert.Equal(t, hasty, res.Actors[0].ActorID)
	assert.Equal(t, 3, res.Actors[0].Count)
}

func TestCommandErrors(t *testing.T) {
	t.Parallel()
	_, open := newTestLedger(t)
	failing := func(context.Context) (Ledger, func(), error) {
		return nil, nil, errors.New("connection refused")
	}
	tenant := uuid.New().String()

	tests := []struct {
		name string
		open Opener
		args []string
	}{
		{"missing tenant", open, []string{"verify"}},
		{"bad tenant", open, []string{"verify", "--tenant", "acme"}},
		{"bad format", open, []string{"verify", "--tenant", tenant, "--format", "xml"}},
		{"open fails", failing, []string{"replay", "--tenant", tenant}},
		{"inverted window", open, []string{"quick-approvals", "--tenant", tenant,
			"--from", "2026-02-01T00:00:00Z", "--to", "2026-01-01T00:00:00Z"}},
		{"bad threshold", open, []string{"quick-approvals", "--tenant", tenant, "--threshold", "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := run(t, tt.open, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestQuickApprovalsWindow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	o := &QuickApprovalsOptions{Window: 24 * time.Hour}
	w, err := o.window(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), w.From)
	assert.Equal(t, now, w.To)

	o = &QuickApprovalsOptions{From: "2026-03-01T00:00:00Z", To: "2026-03-02T00:00:00Z"}
	w, err = o.window(now)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, w.To.Sub(w.From))
}
