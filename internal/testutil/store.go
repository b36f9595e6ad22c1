// Package testutil provides an in-memory store that mirrors the PostgreSQL
// repositories, for service tests that need real state instead of mocks.
// Transactions are serialized and roll back by restoring a snapshot.
package testutil

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casegate/casegate-backend/internal/domain"
)

// Store groups the fake repositories over one shared state.
type Store struct {
	Audit   *AuditStore
	Drafts  *DraftStore
	Matters *MatterStore
	Sends   *SendStore
	Tx      *TxManager

	st *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	st := &state{
		records:   map[uuid.UUID][]domain.AuditRecord{},
		drafts:    map[uuid.UUID]domain.Draft{},
		revisions: map[uuid.UUID][]domain.DraftRevision{},
		matters:   map[uuid.UUID]domain.Matter{},
		sends:     map[uuid.UUID]domain.SendRecord{},
		now:       time.Now,
	}
	return &Store{
		Audit:   &AuditStore{st: st},
		Drafts:  &DraftStore{st: st},
		Matters: &MatterStore{st: st},
		Sends:   &SendStore{st: st},
		Tx:      &TxManager{st: st},
		st:      st,
	}
}

// SetClock replaces the clock used for audit timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.now = now
}

type state struct {
	// txMu serializes writers: a transaction holds it for its whole duration.
	txMu sync.Mutex
	mu   sync.Mutex

	records   map[uuid.UUID][]domain.AuditRecord // by tenant, in seq order
	drafts    map[uuid.UUID]domain.Draft
	revisions map[uuid.UUID][]domain.DraftRevision
	matters   map[uuid.UUID]domain.Matter
	sends     map[uuid.UUID]domain.SendRecord

	now        func() time.Time
	appendHook func(domain.AuditRecord) error
	sendHook   func(domain.SendRecord) error
}

type snapshot struct {
	records   map[uuid.UUID][]domain.AuditRecord
	drafts    map[uuid.UUID]domain.Draft
	revisions map[uuid.UUID][]domain.DraftRevision
	sends     map[uuid.UUID]domain.SendRecord
}

func (s *state) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		records:   make(map[uuid.UUID][]domain.AuditRecord, len(s.records)),
		drafts:    maps.Clone(s.drafts),
		revisions: make(map[uuid.UUID][]domain.DraftRevision, len(s.revisions)),
		sends:     maps.Clone(s.sends),
	}
	for k, v := range s.records {
		snap.records[k] = append([]domain.AuditRecord(nil), v...)
	}
	for k, v := range s.revisions {
		snap.revisions[k] = append([]domain.DraftRevision(nil), v...)
	}
	return snap
}

func (s *state) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.records
	s.drafts = snap.drafts
	s.revisions = snap.revisions
	s.sends = snap.sends
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// write runs fn under the state lock. Outside a transaction it also takes the
// writer lock so it cannot interleave with a transaction that may roll back.
func (s *state) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *state) read(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// TxManager runs functions in serialized, snapshot-backed transactions.
type TxManager struct {
	st    *state
	calls int
	mu    sync.Mutex
}

// RunInTx executes fn atomically: if fn fails or panics every write made
// through ctx is undone. Nested calls join the outer transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	m.st.txMu.Lock()
	defer m.st.txMu.Unlock()

	snap := m.st.snapshot()
	defer func() {
		if r := recover(); r != nil {
			m.st.restore(snap)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.st.restore(snap)
		return err
	}
	return nil
}

// Calls returns how many top-level transactions were started.
func (m *TxManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
