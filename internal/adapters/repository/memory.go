// Package repository defines the ledger and audit store interfaces with memory and SQL backends.
package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/okian/ringside/internal/domain/model"
)

type ledgerScope struct {
	entries []model.LedgerEntry
	byHash  map[string]int
}

// MemoryStore keeps everything in process memory. It is the default backend and the one tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string]*ledgerScope
	rounds  map[string]map[int]struct{}
	audits  map[string][]model.AuditEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[string]*ledgerScope),
		rounds:  make(map[string]map[int]struct{}),
		audits:  make(map[string][]model.AuditEntry),
	}
}

func scopeKey(boutID string, round int) string {
	return boutID + "/" + strconv.Itoa(round)
}

// LedgerTip returns the newest entry of a ledger.
func (s *MemoryStore) LedgerTip(ctx context.Context, boutID string, round int) (model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.ledgers[scopeKey(boutID, round)]
	if !ok || len(sc.entries) == 0 {
		return model.LedgerEntry{}, ErrNotFound
	}
	return sc.entries[len(sc.entries)-1], nil
}

// FindByHash looks an entry up by event hash.
func (s *MemoryStore) FindByHash(ctx context.Context, boutID string, round int, eventHash string) (model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.ledgers[scopeKey(boutID, round)]
	if !ok {
		return model.LedgerEntry{}, ErrNotFound
	}
	i, ok := sc.byHash[eventHash]
	if !ok {
		return model.LedgerEntry{}, ErrNotFound
	}
	return sc.entries[i], nil
}

// InsertLedger appends e. The sequence index must be the next free one.
func (s *MemoryStore) InsertLedger(ctx context.Context, e model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scopeKey(e.BoutID, e.Round)
	sc, ok := s.ledgers[key]
	if !ok {
		sc = &ledgerScope{byHash: make(map[string]int)}
		s.ledgers[key] = sc
	}
	if _, dup := sc.byHash[e.EventHash]; dup {
		return ErrConflict
	}
	if e.SequenceIndex != int64(len(sc.entries)) {
		return ErrConflict
	}
	sc.byHash[e.EventHash] = len(sc.entries)
	sc.entries = append(sc.entries, e)

	rs, ok := s.rounds[e.BoutID]
	if !ok {
		rs = make(map[int]struct{})
		s.rounds[e.BoutID] = rs
	}
	rs[e.Round] = struct{}{}
	return nil
}

// LedgerEntries returns a copy of a ledger.
func (s *MemoryStore) LedgerEntries(ctx context.Context, boutID string, round int) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.ledgers[scopeKey(boutID, round)]
	if !ok {
		return nil, nil
	}
	out := make([]model.LedgerEntry, len(sc.entries))
	copy(out, sc.entries)
	return out, nil
}

// Rounds lists the rounds of a bout in ascending order.
func (s *MemoryStore) Rounds(ctx context.Context, boutID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.rounds[boutID]))
	for r := range s.rounds[boutID] {
		out = append(out, r)
	}
	sort.Ints(out)
	return out, nil
}

// AuditTip returns the last audit entry of a bout.
func (s *MemoryStore) AuditTip(ctx context.Context, boutID string) (model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.audits[boutID]
	if len(chain) == 0 {
		return model.AuditEntry{}, ErrNotFound
	}
	return cloneAudit(chain[len(chain)-1]), nil
}

// AppendAudit appends e to its bout chain.
func (s *MemoryStore) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.audits[e.BoutID]
	if e.SequenceNum != int64(len(chain)) {
		return ErrConflict
	}
	s.audits[e.BoutID] = append(chain, cloneAudit(e))
	return nil
}

// AuditEntries returns a copy of a chain.
func (s *MemoryStore) AuditEntries(ctx context.Context, boutID string) ([]model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.audits[boutID]
	out := make([]model.AuditEntry, len(chain))
	for i := range chain {
		out[i] = cloneAudit(chain[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneAudit(e model.AuditEntry) model.AuditEntry {
	e.Payload = append([]byte(nil), e.Payload...)
	return e
}
