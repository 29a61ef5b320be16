package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/ringside/internal/adapters/archive"
	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/audit"
	"github.com/okian/ringside/internal/domain/hybrid"
	"github.com/okian/ringside/internal/domain/ledger"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// SystemActor signs audit entries the service writes on its own behalf.
const SystemActor = "system"

// roundState is the round-scoped state of one round.
type roundState struct {
	mu     sync.Mutex
	opened bool
	card   *hybrid.Result
}

// boutState holds a bout's rounds. Writers hold mu for reading; close holds it exclusively.
type boutState struct {
	mu     sync.RWMutex
	closed bool

	roundsMu sync.Mutex
	rounds   map[int]*roundState
}

func (b *boutState) round(n int) *roundState {
	b.roundsMu.Lock()
	defer b.roundsMu.Unlock()
	rs, ok := b.rounds[n]
	if !ok {
		rs = &roundState{}
		b.rounds[n] = rs
	}
	return rs
}

func (b *boutState) peek(n int) (*roundState, bool) {
	b.roundsMu.Lock()
	defer b.roundsMu.Unlock()
	rs, ok := b.rounds[n]
	return rs, ok
}

// bout returns the arena entry for id, creating it on first use.
// A bout whose audit chain ends in bout_closed is restored as closed.
func (s *Service) bout(ctx context.Context, c *components, id string) (*boutState, error) {
	s.boutsMu.Lock()
	defer s.boutsMu.Unlock()

	if b, ok := s.bouts[id]; ok {
		return b, nil
	}

	b := &boutState{rounds: make(map[int]*roundState)}
	tip, err := c.store.AuditTip(ctx, id)
	switch {
	case err == nil:
		b.closed = tip.EventType == audit.BoutClosed
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load bout %s: %w", id, err)
	}

	s.bouts[id] = b
	if b.closed {
		s.closedBouts++
	} else {
		s.openBouts++
	}
	metrics.UpdateBoutsActive(s.openBouts)
	return b, nil
}

func (s *Service) peekBout(id string) (*boutState, bool) {
	s.boutsMu.Lock()
	defer s.boutsMu.Unlock()
	b, ok := s.bouts[id]
	return b, ok
}

// enter read-locks an open bout. The returned func releases it.
func (s *Service) enter(ctx context.Context, c *components, id string) (*boutState, func(), error) {
	b, err := s.bout(ctx, c, id)
	if err != nil {
		return nil, nil, err
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		metrics.RecordEventRejected("bout_closed")
		return nil, nil, fmt.Errorf("%w: %s", ErrBoutClosed, id)
	}
	return b, b.mu.RUnlock, nil
}

func requireBout(boutID string) error {
	if strings.TrimSpace(boutID) == "" {
		return &model.ValidationError{Field: "bout_id", Reason: "missing"}
	}
	return nil
}

func requireRound(boutID string, round int) error {
	if err := requireBout(boutID); err != nil {
		return err
	}
	if round < 1 {
		return &model.ValidationError{Field: "round", Reason: "must be >= 1"}
	}
	return nil
}

var reservedAuditTypes = map[string]struct{}{
	audit.EventAccepted:   {},
	audit.DetectionsFused: {},
	audit.RoundOpened:     {},
	audit.RoundScored:     {},
	audit.BoutClosed:      {},
}

// AppendAudit records an operator decision in the bout's chain. Types the service writes itself are refused.
func (s *Service) AppendAudit(ctx context.Context, boutID, eventType string, payload json.RawMessage, actor string) (entry model.AuditEntry, err error) {
	ctx, span := startSpan(ctx, "AppendAudit", boutAttrs(boutID, 0)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return model.AuditEntry{}, err
	}
	if err := requireBout(boutID); err != nil {
		return model.AuditEntry{}, err
	}
	if _, reserved := reservedAuditTypes[eventType]; reserved {
		return model.AuditEntry{}, &model.ValidationError{Field: "event_type", Reason: "reserved for the service"}
	}
	if strings.TrimSpace(actor) == "" {
		return model.AuditEntry{}, &model.ValidationError{Field: "actor", Reason: "missing"}
	}

	_, release, err := s.enter(ctx, c, boutID)
	if err != nil {
		return model.AuditEntry{}, err
	}
	defer release()

	entry, err = c.chain.Append(ctx, boutID, eventType, payload, actor)
	if err != nil {
		return model.AuditEntry{}, err
	}
	metrics.RecordAuditEntry(eventType)
	return entry, nil
}

// AuditEntries returns the bout's chain in sequence order.
func (s *Service) AuditEntries(ctx context.Context, boutID string) ([]model.AuditEntry, error) {
	c, err := s.components()
	if err != nil {
		return nil, err
	}
	return c.chain.Entries(ctx, boutID)
}

// VerifyAudit re-walks the bout's chain. Tampering is a result, not an error.
func (s *Service) VerifyAudit(ctx context.Context, boutID string) (res model.VerificationResult, err error) {
	ctx, span := startSpan(ctx, "VerifyAudit", boutAttrs(boutID, 0)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return model.VerificationResult{}, err
	}
	res, err = c.chain.Verify(ctx, boutID)
	if err != nil {
		return res, err
	}
	metrics.RecordAuditVerification(verdict(res))
	return res, nil
}

// VerifyAuditStrict is VerifyAudit with tampering returned as an error wrapping audit.ErrTamperDetected.
func (s *Service) VerifyAuditStrict(ctx context.Context, boutID string) (res model.VerificationResult, err error) {
	ctx, span := startSpan(ctx, "VerifyAuditStrict", boutAttrs(boutID, 0)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return model.VerificationResult{}, err
	}
	res, err = c.chain.VerifyStrict(ctx, boutID)
	if err != nil && !errors.Is(err, audit.ErrTamperDetected) {
		return res, err
	}
	metrics.RecordAuditVerification(verdict(res))
	return res, err
}

// VerifyLedger re-walks one round's event ledger.
func (s *Service) VerifyLedger(ctx context.Context, boutID string, round int) (res model.VerificationResult, err error) {
	ctx, span := startSpan(ctx, "VerifyLedger", boutAttrs(boutID, round)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return model.VerificationResult{}, err
	}
	if err := requireRound(boutID, round); err != nil {
		return model.VerificationResult{}, err
	}
	res, err = c.ledger.Verify(ctx, boutID, round)
	if err != nil {
		return res, err
	}
	metrics.RecordLedgerVerification(verdict(res))
	if res.Tampered {
		s.logger.Error(ctx, "event ledger tamper detected",
			logger.String("bout_id", boutID),
			logger.Int("round", round),
			logger.String("details", res.TamperDetails),
		)
	}
	return res, nil
}

func verdict(res model.VerificationResult) string {
	if res.Tampered {
		return "tampered"
	}
	return "valid"
}

// Subscribe registers a live score subscriber for an open bout.
func (s *Service) Subscribe(ctx context.Context, boutID string) (*broadcast.Subscription, error) {
	c, err := s.components()
	if err != nil {
		return nil, err
	}
	if err := requireBout(boutID); err != nil {
		return nil, err
	}
	_, release, err := s.enter(ctx, c, boutID)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.hub.Subscribe(boutID)
}

// CloseResult reports a bout close.
type CloseResult struct {
	Entry      model.AuditEntry `json:"entry"`
	Rounds     []int            `json:"rounds"`
	ArchiveKey string           `json:"archive_key,omitempty"`
}

type boutClosedPayload struct {
	Rounds []int  `json:"rounds"`
	Actor  string `json:"actor"`
}

// CloseBout seals a bout: the close is audited, the record archived and further writes refused.
// An archive failure is logged and counted; the bout stays closed.
func (s *Service) CloseBout(ctx context.Context, boutID, actor string) (res CloseResult, err error) {
	ctx, span := startSpan(ctx, "CloseBout", boutAttrs(boutID, 0)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return CloseResult{}, err
	}
	if err := requireBout(boutID); err != nil {
		return CloseResult{}, err
	}
	if strings.TrimSpace(actor) == "" {
		return CloseResult{}, &model.ValidationError{Field: "actor", Reason: "missing"}
	}
	b, err := s.bout(ctx, c, boutID)
	if err != nil {
		return CloseResult{}, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return CloseResult{}, fmt.Errorf("%w: %s", ErrBoutClosed, boutID)
	}
	rounds, err := c.store.Rounds(ctx, boutID)
	if err != nil {
		b.mu.Unlock()
		return CloseResult{}, fmt.Errorf("list rounds: %w", err)
	}
	entry, err := c.chain.AppendJSON(ctx, boutID, audit.BoutClosed, boutClosedPayload{Rounds: rounds, Actor: actor}, actor)
	if err != nil {
		b.mu.Unlock()
		return CloseResult{}, err
	}
	b.closed = true
	b.mu.Unlock()

	s.boutsMu.Lock()
	s.openBouts--
	s.closedBouts++
	metrics.UpdateBoutsActive(s.openBouts)
	s.boutsMu.Unlock()

	metrics.RecordAuditEntry(audit.BoutClosed)
	metrics.RecordBoutClosed()
	c.hub.CloseBout(boutID)
	c.pipeline.Forget(boutID)

	res = CloseResult{Entry: entry, Rounds: rounds}
	bundle, err := s.bundle(ctx, c, b, boutID, actor, entry.TimestampMS, rounds)
	if err != nil {
		metrics.RecordArchiveError()
		s.logger.Error(ctx, "building archive bundle failed", logger.String("bout_id", boutID), logger.Error(err))
		return res, nil
	}
	key, err := c.archiver.Archive(ctx, bundle)
	if err != nil {
		metrics.RecordArchiveError()
		s.logger.Error(ctx, "archiving closed bout failed", logger.String("bout_id", boutID), logger.Error(err))
		return res, nil
	}
	res.ArchiveKey = key

	s.logger.Info(ctx, "bout closed",
		logger.String("bout_id", boutID),
		logger.String("actor", actor),
		logger.Int("rounds", len(rounds)),
		logger.String("archive_key", key),
	)
	return res, nil
}

func (s *Service) bundle(ctx context.Context, c *components, b *boutState, boutID, actor string, closedMS int64, rounds []int) (*archive.Bundle, error) {
	out := &archive.Bundle{BoutID: boutID, ClosedBy: actor, ClosedMS: closedMS}
	for _, n := range rounds {
		entries, err := c.ledger.Entries(ctx, boutID, n)
		if err != nil {
			return nil, fmt.Errorf("round %d entries: %w", n, err)
		}
		rb := archive.RoundBundle{Round: n, Entries: entries, Verification: ledger.VerifyEntries(entries)}
		var card *hybrid.Result
		if rs, ok := b.peek(n); ok {
			rs.mu.Lock()
			card = rs.card
			rs.mu.Unlock()
		}
		if card == nil {
			fused, err := c.fuser.Fuse(ctx, boutID, n, eventsOf(entries))
			if err != nil {
				return nil, fmt.Errorf("round %d score: %w", n, err)
			}
			card = &fused
		}
		rb.Card = &card.Card
		out.Rounds = append(out.Rounds, rb)
	}

	chain, err := c.chain.Entries(ctx, boutID)
	if err != nil {
		return nil, err
	}
	out.Audit = chain
	out.AuditVerification = audit.VerifyEntries(chain)
	return out, nil
}

func eventsOf(entries []model.LedgerEntry) []model.CombatEvent {
	events := make([]model.CombatEvent, len(entries))
	for i := range entries {
		events[i] = entries[i].Event
	}
	return events
}
