// Package audit keeps a tamper-evident, hash-linked record of every accepted decision per bout.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/keylock"
)

// Audit event types recorded by the service.
const (
	EventAccepted   = "event_accepted"
	DetectionsFused = "detections_fused"
	RoundOpened     = "round_opened"
	RoundScored     = "round_scored"
	BoutClosed      = "bout_closed"
)

// hashable is the canonical body of an entry. current_hash is excluded.
type hashable struct {
	SequenceNum  int64           `json:"sequence_num"`
	PreviousHash string          `json:"previous_hash"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	TimestampMS  int64           `json:"timestamp_ms"`
	Actor        string          `json:"actor"`
}

// Hash computes SHA-256(previous_hash || JCS(body)) for e.
func Hash(e *model.AuditEntry) (string, error) {
	raw, err := json.Marshal(hashable{
		SequenceNum:  e.SequenceNum,
		PreviousHash: e.PreviousHash,
		EventType:    e.EventType,
		Payload:      e.Payload,
		TimestampMS:  e.TimestampMS,
		Actor:        e.Actor,
	})
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize entry: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(e.PreviousHash))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Chain appends to and verifies per-bout audit chains.
type Chain struct {
	store    repository.AuditStore
	locks    *keylock.Arena
	now      func() time.Time
	onTamper func(boutID string, index int, details string)
}

// New creates a chain over store.
func New(store repository.AuditStore, opts ...Option) *Chain {
	c := &Chain{store: store, locks: keylock.New(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append adds an entry to the chain of boutID and returns it. Appends are serialized per bout.
func (c *Chain) Append(ctx context.Context, boutID, eventType string, payload json.RawMessage, actor string) (model.AuditEntry, error) {
	if strings.TrimSpace(boutID) == "" {
		return model.AuditEntry{}, ErrMissingBout
	}
	if strings.TrimSpace(eventType) == "" {
		return model.AuditEntry{}, ErrMissingEventType
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return model.AuditEntry{}, ErrInvalidPayload
	}

	unlock := c.locks.Lock(boutID)
	defer unlock()

	entry := model.AuditEntry{
		BoutID:       boutID,
		PreviousHash: model.GenesisHash,
		EventType:    eventType,
		Payload:      payload,
		Actor:        actor,
		TimestampMS:  c.now().UnixMilli(),
	}
	tip, err := c.store.AuditTip(ctx, boutID)
	switch {
	case err == nil:
		entry.SequenceNum = tip.SequenceNum + 1
		entry.PreviousHash = tip.CurrentHash
	case !errors.Is(err, repository.ErrNotFound):
		return model.AuditEntry{}, fmt.Errorf("read tip: %w", err)
	}

	if entry.CurrentHash, err = Hash(&entry); err != nil {
		return model.AuditEntry{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.AuditEntry{}, fmt.Errorf("append aborted: %w", err)
	}
	if err := c.store.AppendAudit(ctx, entry); err != nil {
		return model.AuditEntry{}, fmt.Errorf("append entry: %w", err)
	}
	return entry, nil
}

// AppendJSON marshals payload and appends it.
func (c *Chain) AppendJSON(ctx context.Context, boutID, eventType string, payload any, actor string) (model.AuditEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return c.Append(ctx, boutID, eventType, raw, actor)
}

// Entries returns the chain of boutID in sequence order.
func (c *Chain) Entries(ctx context.Context, boutID string) ([]model.AuditEntry, error) {
	entries, err := c.store.AuditEntries(ctx, boutID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrChainNotFound
	}
	return entries, nil
}

// Verify walks the chain of boutID and stops at the first mismatch. It never writes.
func (c *Chain) Verify(ctx context.Context, boutID string) (model.VerificationResult, error) {
	entries, err := c.Entries(ctx, boutID)
	if err != nil {
		return model.VerificationResult{}, err
	}
	res := VerifyEntries(entries)
	if res.Tampered && c.onTamper != nil {
		c.onTamper(boutID, *res.TamperDetectedAt, res.TamperDetails)
	}
	return res, nil
}

// VerifyStrict is Verify with tampering reported as an error wrapping ErrTamperDetected.
func (c *Chain) VerifyStrict(ctx context.Context, boutID string) (model.VerificationResult, error) {
	res, err := c.Verify(ctx, boutID)
	if err != nil {
		return res, err
	}
	if res.Tampered {
		return res, fmt.Errorf("%w at index %d: %s", ErrTamperDetected, *res.TamperDetectedAt, res.TamperDetails)
	}
	return res, nil
}

// VerifyEntries checks a chain slice in sequence order.
func VerifyEntries(entries []model.AuditEntry) model.VerificationResult {
	total := len(entries)
	prev := model.GenesisHash
	for i := range entries {
		e := &entries[i]
		if e.SequenceNum != int64(i) {
			return model.TamperedAt(total, i, fmt.Sprintf("sequence number %d, expected %d", e.SequenceNum, i))
		}
		if e.PreviousHash != prev {
			return model.TamperedAt(total, i, "previous hash does not link to predecessor")
		}
		want, err := Hash(e)
		if err != nil {
			return model.TamperedAt(total, i, "entry cannot be canonicalized: "+err.Error())
		}
		if want != e.CurrentHash {
			return model.TamperedAt(total, i, "current hash mismatch")
		}
		prev = e.CurrentHash
	}
	return model.VerificationResult{Valid: true, TotalEntries: total, VerifiedEntries: total}
}
