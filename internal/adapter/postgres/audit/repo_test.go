package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/casegate/casegate-backend/internal/adapter/postgres"
	"github.com/casegate/casegate-backend/internal/adapter/postgres/audit"
	"github.com/casegate/casegate-backend/internal/adapter/postgres/testhelper"
	"github.com/casegate/casegate-backend/internal/domain"
)

// newRepo sets up a test DB and returns a ready Repo + pool.
func newRepo(t *testing.T) (*audit.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return audit.New(pool), pool
}

func buildRecord(tenantID uuid.UUID, action domain.Action, outcome domain.Outcome, detail map[string]any) domain.AuditRecord {
	actor := uuid.New()
	role := domain.RoleSupervisingProfessional
	resource := uuid.New()
	return domain.AuditRecord{
		TenantID:     tenantID,
		ActorID:      &actor,
		ActorRole:    &role,
		Action:       action,
		ResourceType: domain.ResourceTypeDraft,
		ResourceID:   &resource,
		Outcome:      outcome,
		Detail:       detail,
		Origin:       "192.0.2.10",
	}
}

func TestRepo_Append_AssignsChain(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()

	first, err := repo.Append(ctx, buildRecord(tenant, domain.ActionApproveDraft, domain.OutcomeSuccess,
		map[string]any{domain.DetailReviewDurationSeconds: 12.5}))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := repo.Append(ctx, buildRecord(tenant, domain.ActionExecuteSend, domain.OutcomeFailure, nil))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq = %d, %d; want 1, 2", first.Seq, second.Seq)
	}
	if first.PrevHash != "" {
		t.Errorf("first PrevHash = %q, want empty", first.PrevHash)
	}
	if second.PrevHash != first.Hash {
		t.Errorf("second PrevHash = %q, want %q", second.PrevHash, first.Hash)
	}
	if second.OccurredAt.Before(first.OccurredAt) {
		t.Errorf("occurred_at went backwards: %v then %v", first.OccurredAt, second.OccurredAt)
	}

	seq, hash, err := repo.Head(ctx, tenant)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if seq != 2 || hash != second.Hash {
		t.Errorf("Head = %d/%s, want 2/%s", seq, hash, second.Hash)
	}
}

func TestRepo_Append_StoredRecordVerifies(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()

	want, err := repo.Append(ctx, buildRecord(tenant, domain.ActionApproveDraft, domain.OutcomeSuccess,
		map[string]any{"nested": map[string]any{"b": 1, "a": []any{"x", 2.25}}, "version": 3}))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := repo.GetByID(ctx, tenant, want.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	hash, err := got.ChainHash(got.PrevHash)
	if err != nil {
		t.Fatalf("ChainHash: %v", err)
	}
	if hash != got.Hash || got.Hash != want.Hash {
		t.Errorf("stored record does not verify: recomputed %s, stored %s, appended %s", hash, got.Hash, want.Hash)
	}
	if got.ActorRole == nil || *got.ActorRole != domain.RoleSupervisingProfessional {
		t.Errorf("ActorRole = %v", got.ActorRole)
	}
}

func TestRepo_Append_SystemRecord(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	rec := domain.AuditRecord{
		TenantID:     uuid.New(),
		Action:       domain.ActionVerifyAuditChain,
		ResourceType: domain.ResourceTypeAuditLog,
		Outcome:      domain.OutcomeSuccess,
	}
	got, err := repo.Append(ctx, rec)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	stored, err := repo.GetByID(ctx, rec.TenantID, got.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ActorID != nil || stored.ActorRole != nil {
		t.Errorf("system record should have no actor, got %v/%v", stored.ActorID, stored.ActorRole)
	}
}

func TestRepo_Append_RollsBackWithCallerTx(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()
	tm := postgres.NewTxManager(pool)

	sentinel := errors.New("business failure")
	err := tm.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Append(ctx, buildRecord(tenant, domain.ActionRejectDraft, domain.OutcomeSuccess, nil)); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}

	page, err := repo.Query(ctx, domain.AuditFilter{TenantID: tenant})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("expected rolled-back record to be absent, got %d", len(page.Records))
	}
}

func TestRepo_Append_MissingTenantFailsClosed(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.Append(context.Background(), domain.AuditRecord{Action: domain.ActionViewDraft})
	if !errors.Is(err, domain.ErrAuditWrite) {
		t.Fatalf("expected ErrAuditWrite, got %v", err)
	}
}

func TestRepo_Append_ConcurrentSameTenant(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Append(ctx, buildRecord(tenant, domain.ActionViewDraft, domain.OutcomeSuccess, nil))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := repo.Chain(ctx, tenant, 0, 100)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	prev := ""
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Fatalf("record %d has seq %d", i, rec.Seq)
		}
		if rec.PrevHash != prev {
			t.Fatalf("record %d breaks the chain", rec.Seq)
		}
		prev = rec.Hash
	}
}

func TestRepo_AuditRecordsAreImmutable(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()

	rec, err := repo.Append(ctx, buildRecord(tenant, domain.ActionApproveDraft, domain.OutcomeSuccess, nil))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := pool.Exec(ctx, `UPDATE audit_records SET outcome = 'DENIED' WHERE id = $1`, rec.ID); err == nil {
		t.Error("expected UPDATE to be rejected")
	}
	if _, err := pool.Exec(ctx, `DELETE FROM audit_records WHERE id = $1`, rec.ID); err == nil {
		t.Error("expected DELETE to be rejected")
	}
}

func TestRepo_Query_FiltersAndPaginates(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()
	other := uuid.New()

	var approvals []domain.AuditRecord
	for i := 0; i < 5; i++ {
		rec, err := repo.Append(ctx, buildRecord(tenant, domain.ActionApproveDraft, domain.OutcomeSuccess, nil))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		approvals = append(approvals, rec)
		if _, err := repo.Append(ctx, buildRecord(tenant, domain.ActionRejectDraft, domain.OutcomeDenied, nil)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if _, err := repo.Append(ctx, buildRecord(other, domain.ActionApproveDraft, domain.OutcomeSuccess, nil)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	filter := domain.AuditFilter{
		TenantID: tenant,
		Actions:  []domain.Action{domain.ActionApproveDraft},
		Limit:    2,
	}

	var got []domain.AuditRecord
	pages := 0
	for {
		page, err := repo.Query(ctx, filter)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		pages++
		got = append(got, page.Records...)
		if page.NextToken == "" {
			break
		}
		filter.PageToken = page.NextToken
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if len(got) != len(approvals) {
		t.Fatalf("expected %d records, got %d", len(approvals), len(got))
	}
	for i := range got {
		if got[i].ID != approvals[i].ID {
			t.Errorf("record %d: got %s, want %s", i, got[i].ID, approvals[i].ID)
		}
	}

	denied := domain.OutcomeDenied
	page, err := repo.Query(ctx, domain.AuditFilter{TenantID: tenant, Outcome: &denied})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Records) != 5 {
		t.Errorf("expected 5 denied records, got %d", len(page.Records))
	}
}

func TestRepo_Query_TimeRange(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	tenant := uuid.New()

	rec, err := repo.Append(ctx, buildRecord(tenant, domain.ActionViewDraft, domain.OutcomeSuccess, nil))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	from := rec.OccurredAt
	to := rec.OccurredAt.Add(time.Microsecond)
	page, err := repo.Query(ctx, domain.AuditFilter{TenantID: tenant, From: &from, To: &to})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Records) != 1 {
		t.Errorf("expected record inside [from, to), got %d", len(page.Records))
	}

	page, err = repo.Query(ctx, domain.AuditFilter{TenantID: tenant, To: &from})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("To is exclusive, got %d records", len(page.Records))
	}
}

func TestRepo_Query_InvalidToken(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.Query(context.Background(), domain.AuditFilter{TenantID: uuid.New(), PageToken: "%%%"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRepo_GetByID_OtherTenant(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	rec, err := repo.Append(ctx, buildRecord(uuid.New(), domain.ActionViewDraft, domain.OutcomeSuccess, nil))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := repo.GetByID(ctx, uuid.New(), rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
}
