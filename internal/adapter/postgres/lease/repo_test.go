package lease_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/adapter/postgres/lease"
	"github.com/casegate/casegate-backend/internal/adapter/postgres/testhelper"
	"github.com/casegate/casegate-backend/internal/domain"
)

func TestRepo_AcquireRelease(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := lease.New(pool)
	ctx := context.Background()

	tenant, draftID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	if err := repo.Acquire(ctx, tenant, draftID, first, time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := repo.Acquire(ctx, tenant, draftID, second, time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}

	// Releasing someone else's lease is a no-op.
	if err := repo.Release(ctx, draftID, second); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := repo.Acquire(ctx, tenant, draftID, second, time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("lease should still be held, got %v", err)
	}

	if err := repo.Release(ctx, draftID, first); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := repo.Acquire(ctx, tenant, draftID, second, time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestRepo_ExpiredLeaseCanBeTaken(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := lease.New(pool)
	ctx := context.Background()

	tenant, draftID := uuid.New(), uuid.New()
	if err := repo.Acquire(ctx, tenant, draftID, uuid.New(), 50*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := repo.Acquire(ctx, tenant, draftID, uuid.New(), time.Minute); err != nil {
		t.Fatalf("expected expired lease to be taken, got %v", err)
	}
}

func TestRepo_Renew(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := lease.New(pool)
	ctx := context.Background()

	tenant, draftID := uuid.New(), uuid.New()
	holder := uuid.New()
	if err := repo.Acquire(ctx, tenant, draftID, holder, 200*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := repo.Renew(ctx, draftID, holder, time.Minute); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if err := repo.Acquire(ctx, tenant, draftID, uuid.New(), time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("renewed lease should still be held, got %v", err)
	}
	if err := repo.Renew(ctx, draftID, uuid.New(), time.Minute); !errors.Is(err, domain.ErrLeaseLost) {
		t.Errorf("renewing another holder's lease: expected ErrLeaseLost, got %v", err)
	}
}

func TestRepo_RenewAfterTakeover(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := lease.New(pool)
	ctx := context.Background()

	tenant, draftID := uuid.New(), uuid.New()
	first := uuid.New()
	if err := repo.Acquire(ctx, tenant, draftID, first, 50*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := repo.Acquire(ctx, tenant, draftID, uuid.New(), time.Minute); err != nil {
		t.Fatalf("takeover: %v", err)
	}

	if err := repo.Renew(ctx, draftID, first, time.Minute); !errors.Is(err, domain.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost, got %v", err)
	}
}
