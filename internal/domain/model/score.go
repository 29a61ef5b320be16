// Package model contains domain models passed between layers.
package model

import "strconv"

// WeightBreakdown shows how a normalized weight was derived.
type WeightBreakdown struct {
	BaseWeight         float64 `json:"base_weight"`
	SeverityMultiplier float64 `json:"severity_multiplier"`
	ConfidenceBoost    float64 `json:"confidence_boost"`
	AdjustedWeight     float64 `json:"adjusted_weight"`
	AppliedWeight      float64 `json:"applied_weight"`
}

// NormalizedEvent is an accepted event mapped onto its scoring category. Never persisted.
type NormalizedEvent struct {
	SourceEvent      CombatEvent     `json:"source_event"`
	Category         Category        `json:"category"`
	DamageWeight     float64         `json:"damage_weight"`
	ControlWeight    float64         `json:"control_weight"`
	AggressionWeight float64         `json:"aggression_weight"`
	DefenseWeight    float64         `json:"defense_weight"`
	TotalWeight      float64         `json:"total_weight"`
	Capped           bool            `json:"capped"`
	Breakdown        WeightBreakdown `json:"breakdown"`
}

// ControlWindow is a span of positional control held by a corner.
type ControlWindow struct {
	Corner      Corner `json:"corner"`
	ControlType string `json:"control_type"`
	StartMS     int64  `json:"start_ms"`
	EndMS       int64  `json:"end_ms"`
}

// DurationMS returns the window length, never negative.
func (w ControlWindow) DurationMS() int64 {
	if w.EndMS < w.StartMS {
		return 0
	}
	return w.EndMS - w.StartMS
}

// CornerBreakdown is the per-category result for one corner in one round.
type CornerBreakdown struct {
	Damage            float64    `json:"damage"`
	Control           float64    `json:"control"`
	Aggression        float64    `json:"aggression"`
	Defense           float64    `json:"defense"`
	ControlTimeValue  float64    `json:"control_time_value"`
	ControlDiscounted bool       `json:"control_discounted"`
	CappedCategories  []Category `json:"capped_categories,omitempty"`
	Knockdowns        int        `json:"knockdowns"`
	Primacy           float64    `json:"primacy"`
	OffensiveEvents   int        `json:"offensive_events"`
	EventCount        int        `json:"event_count"`
	Total             float64    `json:"total"`
}

// Sum recomputes Total from the four categories.
func (b *CornerBreakdown) Sum() {
	b.Total = b.Damage + b.Control + b.Aggression + b.Defense
}

// RoundScoreCard is the scored result of one round. Recomputed on every request.
type RoundScoreCard struct {
	BoutID            string          `json:"bout_id"`
	RoundNum          int             `json:"round_num"`
	FighterABreakdown CornerBreakdown `json:"fighter_a_breakdown"`
	FighterBBreakdown CornerBreakdown `json:"fighter_b_breakdown"`
	FighterAScore     int             `json:"fighter_a_score"`
	FighterBScore     int             `json:"fighter_b_score"`
	Winner            Corner          `json:"winner,omitempty"`
	ScoreString       string          `json:"score_string"`
	Override          string          `json:"override,omitempty"`
	Confidence        float64         `json:"confidence"`
	CVEventCount      int             `json:"cv_event_count"`
	JudgeEventCount   int             `json:"judge_event_count"`
}

// ScoreString formats a card as "<fighter_a>-<fighter_b>".
func ScoreString(a, b int) string {
	return strconv.Itoa(a) + "-" + strconv.Itoa(b)
}

// RescoreRequest asks a worker to recompute and broadcast one round's card.
type RescoreRequest struct {
	BoutID string `json:"bout_id"`
	Round  int    `json:"round"`
}

// Key identifies the round the request targets.
func (r RescoreRequest) Key() string {
	return r.BoutID + "/" + strconv.Itoa(r.Round)
}
