// Package ledger assigns gapless, hash-linked sequence numbers to accepted events per (bout, round).
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/keylock"
)

// Result is the outcome of a submission.
type Result struct {
	Entry       model.LedgerEntry
	IsDuplicate bool
}

// Ledger is the idempotency boundary of the ingestion path.
type Ledger struct {
	store      repository.LedgerStore
	locks      *keylock.Arena
	maxRetries int
	now        func() time.Time
	onConflict func(boutID string, round, attempt int)
}

// New creates a ledger over store.
func New(store repository.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		locks:      keylock.New(),
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ChainHash links an event hash to its predecessor.
func ChainHash(previous, eventHash string) string {
	sum := sha256.Sum256([]byte(previous + eventHash))
	return hex.EncodeToString(sum[:])
}

func scope(boutID string, round int) string {
	return boutID + "/" + strconv.Itoa(round)
}

// Submit records e once. Resubmissions return the stored entry with IsDuplicate set and
// consume no sequence index. A cancelled ctx aborts before anything is written.
func (l *Ledger) Submit(ctx context.Context, e model.CombatEvent) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}
	hash := e.Hash()

	unlock := l.locks.Lock(scope(e.BoutID, e.Round))
	defer unlock()

	for attempt := 0; ; attempt++ {
		existing, err := l.store.FindByHash(ctx, e.BoutID, e.Round, hash)
		if err == nil {
			return Result{Entry: existing, IsDuplicate: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return Result{}, fmt.Errorf("lookup hash: %w", err)
		}

		entry, err := l.next(ctx, e, hash)
		if err != nil {
			return Result{}, err
		}
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("submit aborted: %w", err)
		}

		err = l.store.InsertLedger(ctx, entry)
		if err == nil {
			return Result{Entry: entry}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return Result{}, fmt.Errorf("insert entry: %w", err)
		}
		if attempt >= l.maxRetries {
			return Result{}, fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}
		if l.onConflict != nil {
			l.onConflict(e.BoutID, e.Round, attempt+1)
		}
	}
}

func (l *Ledger) next(ctx context.Context, e model.CombatEvent, hash string) (model.LedgerEntry, error) {
	entry := model.LedgerEntry{
		BoutID:            e.BoutID,
		Round:             e.Round,
		EventHash:         hash,
		PreviousEventHash: model.GenesisSentinel,
		ServerReceivedMS:  l.now().UnixMilli(),
		Event:             e,
	}
	tip, err := l.store.LedgerTip(ctx, e.BoutID, e.Round)
	switch {
	case err == nil:
		entry.SequenceIndex = tip.SequenceIndex + 1
		entry.PreviousEventHash = tip.EventHash
	case !errors.Is(err, repository.ErrNotFound):
		return model.LedgerEntry{}, fmt.Errorf("read tip: %w", err)
	}
	entry.ChainHash = ChainHash(entry.PreviousEventHash, hash)
	return entry, nil
}

// Events returns the accepted events of a round in sequence order.
func (l *Ledger) Events(ctx context.Context, boutID string, round int) ([]model.CombatEvent, error) {
	entries, err := l.store.LedgerEntries(ctx, boutID, round)
	if err != nil {
		return nil, err
	}
	events := make([]model.CombatEvent, len(entries))
	for i := range entries {
		events[i] = entries[i].Event
	}
	return events, nil
}

// Entries returns the raw ledger of a round.
func (l *Ledger) Entries(ctx context.Context, boutID string, round int) ([]model.LedgerEntry, error) {
	return l.store.LedgerEntries(ctx, boutID, round)
}

// Verify recomputes every hash and link of a round ledger. It never writes.
func (l *Ledger) Verify(ctx context.Context, boutID string, round int) (model.VerificationResult, error) {
	entries, err := l.store.LedgerEntries(ctx, boutID, round)
	if err != nil {
		return model.VerificationResult{}, err
	}
	if len(entries) == 0 {
		return model.VerificationResult{}, ErrLedgerNotFound
	}
	return VerifyEntries(entries), nil
}

// VerifyEntries checks a ledger slice in sequence order and stops at the first mismatch.
func VerifyEntries(entries []model.LedgerEntry) model.VerificationResult {
	total := len(entries)
	prev := model.GenesisSentinel
	for i := range entries {
		e := &entries[i]
		switch {
		case e.SequenceIndex != int64(i):
			return model.TamperedAt(total, i, fmt.Sprintf("sequence index %d, expected %d", e.SequenceIndex, i))
		case e.Event.Hash() != e.EventHash:
			return model.TamperedAt(total, i, "event hash does not match event fields")
		case e.PreviousEventHash != prev:
			return model.TamperedAt(total, i, "previous event hash does not link to predecessor")
		case ChainHash(prev, e.EventHash) != e.ChainHash:
			return model.TamperedAt(total, i, "chain hash mismatch")
		}
		prev = e.EventHash
	}
	return model.VerificationResult{Valid: true, TotalEntries: total, VerifiedEntries: total}
}
