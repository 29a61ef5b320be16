// Package repository defines the ledger and audit store interfaces with memory and SQL backends.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/domain/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		bout_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		sequence_index BIGINT NOT NULL,
		event_hash TEXT NOT NULL,
		previous_event_hash TEXT NOT NULL,
		chain_hash TEXT NOT NULL,
		server_received_ms BIGINT NOT NULL,
		event TEXT NOT NULL,
		PRIMARY KEY (bout_id, round, sequence_index),
		UNIQUE (bout_id, round, event_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		bout_id TEXT NOT NULL,
		sequence_num BIGINT NOT NULL,
		previous_hash TEXT NOT NULL,
		current_hash TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		actor TEXT NOT NULL,
		timestamp_ms BIGINT NOT NULL,
		PRIMARY KEY (bout_id, sequence_num)
	)`,
}

const ledgerColumns = `bout_id, round, sequence_index, event_hash, previous_event_hash, chain_hash, server_received_ms, event`

const auditColumns = `bout_id, sequence_num, previous_hash, current_hash, event_type, payload, actor, timestamp_ms`

// SQLStore implements Store over database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. Call Migrate before use unless the schema already exists.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (model.LedgerEntry, error) {
	var e model.LedgerEntry
	var raw string
	if err := row.Scan(&e.BoutID, &e.Round, &e.SequenceIndex, &e.EventHash,
		&e.PreviousEventHash, &e.ChainHash, &e.ServerReceivedMS, &raw); err != nil {
		return model.LedgerEntry{}, err
	}
	if err := json.Unmarshal([]byte(raw), &e.Event); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

func scanAudit(row rowScanner) (model.AuditEntry, error) {
	var e model.AuditEntry
	var payload string
	if err := row.Scan(&e.BoutID, &e.SequenceNum, &e.PreviousHash, &e.CurrentHash,
		&e.EventType, &payload, &e.Actor, &e.TimestampMS); err != nil {
		return model.AuditEntry{}, err
	}
	e.Payload = json.RawMessage(payload)
	return e, nil
}

func (s *SQLStore) queryLedgerOne(ctx context.Context, query string, args ...any) (model.LedgerEntry, error) {
	e, err := scanLedger(s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerEntry{}, ErrNotFound
	}
	return e, err
}

// LedgerTip returns the newest entry of a ledger.
func (s *SQLStore) LedgerTip(ctx context.Context, boutID string, round int) (model.LedgerEntry, error) {
	return s.queryLedgerOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE bout_id = ? AND round = ? ORDER BY sequence_index DESC LIMIT 1`, boutID, round)
}

// FindByHash looks an entry up by event hash.
func (s *SQLStore) FindByHash(ctx context.Context, boutID string, round int, eventHash string) (model.LedgerEntry, error) {
	return s.queryLedgerOne(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE bout_id = ? AND round = ? AND event_hash = ?`, boutID, round, eventHash)
}

// InsertLedger stores e. Unique violations map to ErrConflict.
func (s *SQLStore) InsertLedger(ctx context.Context, e model.LedgerEntry) error {
	raw, err := json.Marshal(e.Event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO ledger_entries (`+ledgerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.BoutID, e.Round, e.SequenceIndex, e.EventHash, e.PreviousEventHash, e.ChainHash, e.ServerReceivedMS, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	return nil
}

// LedgerEntries returns a ledger in sequence order.
func (s *SQLStore) LedgerEntries(ctx context.Context, boutID string, round int) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE bout_id = ? AND round = ? ORDER BY sequence_index`), boutID, round)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]model.LedgerEntry, 0)
	for rows.Next() {
		e, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Rounds lists the rounds of a bout in ascending order.
func (s *SQLStore) Rounds(ctx context.Context, boutID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT DISTINCT round FROM ledger_entries
		WHERE bout_id = ? ORDER BY round`), boutID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]int, 0)
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AuditTip returns the last audit entry of a bout.
func (s *SQLStore) AuditTip(ctx context.Context, boutID string) (model.AuditEntry, error) {
	e, err := scanAudit(s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+auditColumns+` FROM audit_entries
		WHERE bout_id = ? ORDER BY sequence_num DESC LIMIT 1`), boutID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuditEntry{}, ErrNotFound
	}
	return e, err
}

// AppendAudit stores e. Unique violations map to ErrConflict.
func (s *SQLStore) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`INSERT INTO audit_entries (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.BoutID, e.SequenceNum, e.PreviousHash, e.CurrentHash, e.EventType, string(e.Payload), e.Actor, e.TimestampMS)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	return nil
}

// AuditEntries returns a chain in sequence order.
func (s *SQLStore) AuditEntries(ctx context.Context, boutID string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT `+auditColumns+` FROM audit_entries
		WHERE bout_id = ? ORDER BY sequence_num`), boutID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]model.AuditEntry, 0)
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
