// Package memory provides in-process implementations of coordination
// primitives for single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/casegate/casegate-backend/internal/domain"
)

// LeaseStore hands out per-draft send leases held in a TTL cache.
// Leases are only exclusive within one process.
type LeaseStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewLeaseStore creates a LeaseStore. Expired leases are purged every
// cleanupInterval; they stop counting as held as soon as they expire.
func NewLeaseStore(cleanupInterval time.Duration) *LeaseStore {
	return &LeaseStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Acquire takes the lease for draftID on behalf of holder for ttl.
// Returns domain.ErrSendInProgress while another holder's lease is live.
func (s *LeaseStore) Acquire(_ context.Context, _, draftID, holder uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Add(draftID.String(), holder, ttl); err != nil {
		return fmt.Errorf("send_lease %s: %w", draftID, domain.ErrSendInProgress)
	}
	return nil
}

// Renew extends holder's live lease to ttl from now. Returns
// domain.ErrLeaseLost if the lease expired or belongs to someone else.
func (s *LeaseStore) Renew(_ context.Context, draftID, holder uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := draftID.String()
	if current, ok := s.cache.Get(key); !ok || current.(uuid.UUID) != holder {
		return fmt.Errorf("send_lease %s: %w", draftID, domain.ErrLeaseLost)
	}
	s.cache.Set(key, holder, ttl)
	return nil
}

// Release gives the lease back if holder still owns it.
func (s *LeaseStore) Release(_ context.Context, draftID, holder uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := draftID.String()
	if current, ok := s.cache.Get(key); ok && current.(uuid.UUID) == holder {
		s.cache.Delete(key)
	}
	return nil
}
