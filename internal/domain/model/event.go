// Package model contains domain models passed between layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Corner identifies one of the two competitors. Red is fighter A, blue is fighter B.
type Corner string

const (
	CornerRed  Corner = "red"
	CornerBlue Corner = "blue"
)

// Valid reports whether c is a known corner.
func (c Corner) Valid() bool { return c == CornerRed || c == CornerBlue }

// Opponent returns the other corner.
func (c Corner) Opponent() Corner {
	if c == CornerRed {
		return CornerBlue
	}
	return CornerRed
}

// Source tells which stream produced an event.
type Source string

const (
	SourceAutomated Source = "automated"
	SourceManual    Source = "manual"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool { return s == SourceAutomated || s == SourceManual }

// Tier grades a knockdown.
type Tier string

const (
	TierFlash      Tier = "flash"
	TierHard       Tier = "hard"
	TierNearFinish Tier = "near_finish"
)

// Valid reports whether t is a known knockdown tier.
func (t Tier) Valid() bool { return t == TierFlash || t == TierHard || t == TierNearFinish }

// Position is the ring/cage location of an action, in normalized coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CombatEvent is an immutable fact reported by a judge device or a detector.
type CombatEvent struct {
	BoutID      string    `json:"bout_id"`
	Round       int       `json:"round"`
	ActorID     string    `json:"actor_id"`
	Corner      Corner    `json:"corner"`
	EventType   EventType `json:"event_type"`
	Tier        Tier      `json:"tier,omitempty"`
	Severity    float64   `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Position    *Position `json:"position,omitempty"`
	TimestampMS int64     `json:"timestamp_ms"`
	DurationMS  int64     `json:"duration_ms,omitempty"`
	ControlType string    `json:"control_type,omitempty"`
	Source      Source    `json:"source"`
	VendorID    string    `json:"vendor_id,omitempty"`
	DeviceID    string    `json:"device_id"`
}

// Validate checks required fields and ranges. Errors wrap ErrValidation.
func (e *CombatEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.BoutID) == "":
		return validationError("bout_id", "missing")
	case e.Round < 1:
		return validationError("round", "must be >= 1")
	case strings.TrimSpace(e.ActorID) == "":
		return validationError("actor_id", "missing")
	case !e.Corner.Valid():
		return validationError("corner", "must be red or blue")
	case strings.TrimSpace(string(e.EventType)) == "":
		return validationError("event_type", "missing")
	case e.Severity < 0 || e.Severity > 1:
		return validationError("severity", "must be within [0,1]")
	case e.Confidence < 0 || e.Confidence > 1:
		return validationError("confidence", "must be within [0,1]")
	case e.TimestampMS < 0:
		return validationError("timestamp_ms", "must be >= 0")
	case !e.Source.Valid():
		return validationError("source", "must be automated or manual")
	case strings.TrimSpace(e.DeviceID) == "":
		return validationError("device_id", "missing")
	}
	if e.EventType == EventKnockdown && !e.Tier.Valid() {
		return validationError("tier", "knockdown requires flash, hard or near_finish")
	}
	if e.EventType == EventControl {
		if e.DurationMS <= 0 {
			return validationError("duration_ms", "control requires a positive duration")
		}
		if strings.TrimSpace(e.ControlType) == "" {
			return validationError("control_type", "control requires a control type")
		}
	}
	if e.DurationMS < 0 {
		return validationError("duration_ms", "must be >= 0")
	}
	return nil
}

// Fingerprint returns the canonical identity string used for deduplication.
func (e *CombatEvent) Fingerprint() string {
	var b strings.Builder
	b.WriteString(e.BoutID)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(e.Round))
	b.WriteByte('|')
	b.WriteString(e.ActorID)
	b.WriteByte('|')
	b.WriteString(string(e.Corner))
	b.WriteByte('|')
	b.WriteString(string(e.EventType))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(RoundTimestamp(e.TimestampMS), 10))
	b.WriteByte('|')
	b.WriteString(e.DeviceID)
	return b.String()
}

// Hash returns the hex SHA-256 of the fingerprint.
func (e *CombatEvent) Hash() string {
	sum := sha256.Sum256([]byte(e.Fingerprint()))
	return hex.EncodeToString(sum[:])
}

// WeightKey is the lookup key into the base weight table. Knockdowns are keyed by tier.
func (e *CombatEvent) WeightKey() string {
	if e.EventType == EventKnockdown && e.Tier != "" {
		return fmt.Sprintf("%s_%s", e.EventType, e.Tier)
	}
	return string(e.EventType)
}

// fingerprintResolutionMS is the timestamp granularity of the fingerprint.
const fingerprintResolutionMS = 10

// RoundTimestamp rounds ts half-up to the nearest 10 ms.
func RoundTimestamp(ts int64) int64 {
	return (ts + fingerprintResolutionMS/2) / fingerprintResolutionMS * fingerprintResolutionMS
}
