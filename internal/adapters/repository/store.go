// Package repository defines the ledger and audit store interfaces with memory and SQL backends.
package repository

import (
	"context"

	"github.com/okian/ringside/internal/domain/model"
)

// LedgerStore persists event ledgers, one per (bout, round).
type LedgerStore interface {
	// LedgerTip returns the entry with the highest sequence index.
	// Returns ErrNotFound if the ledger is empty.
	LedgerTip(ctx context.Context, boutID string, round int) (model.LedgerEntry, error)
	// FindByHash returns the entry carrying eventHash, or ErrNotFound.
	FindByHash(ctx context.Context, boutID string, round int, eventHash string) (model.LedgerEntry, error)
	// InsertLedger stores e. Returns ErrConflict when the hash or sequence index is already taken.
	InsertLedger(ctx context.Context, e model.LedgerEntry) error
	// LedgerEntries returns the ledger in sequence order.
	LedgerEntries(ctx context.Context, boutID string, round int) ([]model.LedgerEntry, error)
	// Rounds lists the rounds of a bout that have at least one entry.
	Rounds(ctx context.Context, boutID string) ([]int, error)
}

// AuditStore persists per-bout audit chains.
type AuditStore interface {
	// AuditTip returns the last entry of the chain, or ErrNotFound.
	AuditTip(ctx context.Context, boutID string) (model.AuditEntry, error)
	// AppendAudit stores e. Returns ErrConflict when the sequence number is already taken.
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	// AuditEntries returns the chain in sequence order.
	AuditEntries(ctx context.Context, boutID string) ([]model.AuditEntry, error)
}

// Store is the complete persistence surface.
type Store interface {
	LedgerStore
	AuditStore
	Close() error
}
