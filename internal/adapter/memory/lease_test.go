package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

func TestLeaseStore_AcquireRelease(t *testing.T) {
	t.Parallel()
	s := NewLeaseStore(time.Minute)
	ctx := context.Background()
	tenant, draftID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	if err := s.Acquire(ctx, tenant, draftID, first, time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := s.Acquire(ctx, tenant, draftID, second, time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}

	_ = s.Release(ctx, draftID, second)
	if err := s.Acquire(ctx, tenant, draftID, second, time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("foreign release must not free the lease, got %v", err)
	}

	_ = s.Release(ctx, draftID, first)
	if err := s.Acquire(ctx, tenant, draftID, second, time.Minute); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}

	if err := s.Acquire(ctx, tenant, uuid.New(), first, time.Minute); err != nil {
		t.Fatalf("leases are per draft: %v", err)
	}
}

func TestLeaseStore_Expiry(t *testing.T) {
	t.Parallel()
	s := NewLeaseStore(time.Minute)
	ctx := context.Background()
	draftID := uuid.New()

	if err := s.Acquire(ctx, uuid.Nil, draftID, uuid.New(), 20*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if err := s.Acquire(ctx, uuid.Nil, draftID, uuid.New(), time.Minute); err != nil {
		t.Fatalf("expected expired lease to be taken, got %v", err)
	}
}

func TestLeaseStore_ConcurrentAcquire(t *testing.T) {
	t.Parallel()
	s := NewLeaseStore(time.Minute)
	draftID := uuid.New()

	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Acquire(context.Background(), uuid.Nil, draftID, uuid.New(), time.Minute) == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("winners = %d, want 1", won.Load())
	}
}

func TestLeaseStore_Renew(t *testing.T) {
	t.Parallel()
	s := NewLeaseStore(time.Minute)
	ctx := context.Background()
	draftID, holder := uuid.New(), uuid.New()

	if err := s.Acquire(ctx, uuid.Nil, draftID, holder, 80*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := s.Renew(ctx, draftID, holder, time.Minute); err != nil {
		t.Fatalf("Renew: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if err := s.Acquire(ctx, uuid.Nil, draftID, uuid.New(), time.Minute); !errors.Is(err, domain.ErrSendInProgress) {
		t.Fatalf("renewed lease should still be held, got %v", err)
	}
	if err := s.Renew(ctx, draftID, uuid.New(), time.Minute); !errors.Is(err, domain.ErrLeaseLost) {
		t.Errorf("renewing another holder's lease: expected ErrLeaseLost, got %v", err)
	}
}

func TestLeaseStore_RenewAfterExpiry(t *testing.T) {
	t.Parallel()
	s := NewLeaseStore(time.Minute)
	ctx := context.Background()
	draftID, holder := uuid.New(), uuid.New()

	if err := s.Acquire(ctx, uuid.Nil, draftID, holder, 20*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if err := s.Renew(ctx, draftID, holder, time.Minute); !errors.Is(err, domain.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost, got %v", err)
	}
}
