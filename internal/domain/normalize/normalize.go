// Package normalize maps accepted events onto weighted scoring categories with per-round caps.
package normalize

import (
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/rules"
)

// Weigh computes the uncapped weight of e.
func Weigh(r *rules.Rules, e *model.CombatEvent) model.WeightBreakdown {
	b := model.WeightBreakdown{
		BaseWeight:         r.BaseWeight(e.WeightKey()),
		SeverityMultiplier: r.SeverityMultiplier(e.Severity),
		ConfidenceBoost:    r.ConfidenceBoost(e.Confidence),
	}
	b.AdjustedWeight = b.BaseWeight * b.SeverityMultiplier * b.ConfidenceBoost
	b.AppliedWeight = b.AdjustedWeight
	return b
}

type bucket struct {
	corner   model.Corner
	category model.Category
}

// RoundState accumulates weight per (corner, category) for one round.
// It is not safe for concurrent use. Scoring builds a fresh state per computation.
type RoundState struct {
	rules  *rules.Rules
	totals map[bucket]float64
	capped map[bucket]bool
}

// NewRoundState creates an empty state bound to r.
func NewRoundState(r *rules.Rules) *RoundState {
	return &RoundState{
		rules:  r,
		totals: make(map[bucket]float64),
		capped: make(map[bucket]bool),
	}
}

// Normalize weighs e, clips it to the remaining category headroom and accumulates it.
func (s *RoundState) Normalize(e model.CombatEvent) model.NormalizedEvent {
	b := Weigh(s.rules, &e)
	cat := model.CategoryOf(e.EventType)
	out := model.NormalizedEvent{SourceEvent: e, Category: cat}

	k := bucket{corner: e.Corner, category: cat}
	headroom := s.rules.Cap(cat) - s.totals[k]
	if headroom < 0 {
		headroom = 0
	}
	if b.AdjustedWeight > headroom {
		b.AppliedWeight = headroom
		out.Capped = true
		s.capped[k] = true
	}
	s.totals[k] += b.AppliedWeight
	out.Breakdown = b
	out.TotalWeight = b.AppliedWeight

	switch cat {
	case model.CategoryDamage:
		out.DamageWeight = b.AppliedWeight
	case model.CategoryControl:
		out.ControlWeight = b.AppliedWeight
	case model.CategoryAggression:
		out.AggressionWeight = b.AppliedWeight
	case model.CategoryDefense:
		out.DefenseWeight = b.AppliedWeight
	}
	return out
}

// Total returns the accumulated weight of a corner in a category.
func (s *RoundState) Total(c model.Corner, cat model.Category) float64 {
	return s.totals[bucket{corner: c, category: cat}]
}

// Capped reports whether any contribution of the corner in the category was clipped.
func (s *RoundState) Capped(c model.Corner, cat model.Category) bool {
	return s.capped[bucket{corner: c, category: cat}]
}

// Snapshot returns the totals keyed by corner then category.
func (s *RoundState) Snapshot() map[model.Corner]map[model.Category]float64 {
	out := map[model.Corner]map[model.Category]float64{
		model.CornerRed:  {},
		model.CornerBlue: {},
	}
	for k, v := range s.totals {
		out[k.corner][k.category] = v
	}
	return out
}
