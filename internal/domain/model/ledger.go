// Package model contains domain models passed between layers.
package model

import "encoding/json"

// GenesisSentinel is the previous hash recorded for the first entry of an event ledger scope.
const GenesisSentinel = "GENESIS"

// GenesisHash is the previous hash of the first entry of every audit chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// LedgerEntry is one accepted event in a (bout, round) ledger.
type LedgerEntry struct {
	BoutID            string      `json:"bout_id"`
	Round             int         `json:"round"`
	SequenceIndex     int64       `json:"sequence_index"`
	EventHash         string      `json:"event_hash"`
	PreviousEventHash string      `json:"previous_event_hash"`
	ChainHash         string      `json:"chain_hash"`
	ServerReceivedMS  int64       `json:"server_received_ms"`
	Event             CombatEvent `json:"event"`
}

// AuditEntry is one record of a per-bout audit chain.
type AuditEntry struct {
	BoutID       string          `json:"bout_id"`
	SequenceNum  int64           `json:"sequence_num"`
	PreviousHash string          `json:"previous_hash"`
	CurrentHash  string          `json:"current_hash"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Actor        string          `json:"actor"`
	TimestampMS  int64           `json:"timestamp_ms"`
}

// VerificationResult reports the outcome of re-verifying a hash chain.
type VerificationResult struct {
	Valid            bool   `json:"valid"`
	TotalEntries     int    `json:"total_entries"`
	VerifiedEntries  int    `json:"verified_entries"`
	Tampered         bool   `json:"tampered"`
	TamperDetectedAt *int   `json:"tamper_detected_at,omitempty"`
	TamperDetails    string `json:"tamper_details,omitempty"`
}

// TamperedAt builds a failed result for the entry at index.
func TamperedAt(total, index int, details string) VerificationResult {
	return VerificationResult{
		TotalEntries:     total,
		VerifiedEntries:  index,
		Tampered:         true,
		TamperDetectedAt: &index,
		TamperDetails:    details,
	}
}
