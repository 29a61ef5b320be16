package rules

import (
	"fmt"
	"math"

	"github.com/okian/ringside/internal/domain/model"
)

// weightSumTolerance bounds float error when checking hybrid weights.
const weightSumTolerance = 1e-9

// Validate checks ranges and completeness. Errors wrap ErrInvalidRules.
func (r *Rules) Validate() error {
	if err := r.validateWeights(); err != nil {
		return err
	}
	if err := r.validateControl(); err != nil {
		return err
	}
	if err := r.validateOutcome(); err != nil {
		return err
	}
	return r.validateStreams()
}

func (r *Rules) validateWeights() error {
	for k, w := range r.BaseWeights {
		if w < 0 || math.IsNaN(w) {
			return invalid("base_weights.%s must be >= 0", k)
		}
	}
	if r.DefaultWeight < 0 {
		return invalid("default_weight must be >= 0")
	}
	for _, t := range []model.Tier{model.TierFlash, model.TierHard, model.TierNearFinish} {
		if _, ok := r.BaseWeights["knockdown_"+string(t)]; !ok {
			return invalid("base_weights.knockdown_%s is required", t)
		}
	}
	if r.Severity.Min < 0 || r.Severity.Max < r.Severity.Min {
		return invalid("severity range [%v,%v] is invalid", r.Severity.Min, r.Severity.Max)
	}
	c := r.Confidence
	if c.Medium < 0 || c.High > 1 || c.Medium > c.High {
		return invalid("confidence tiers must satisfy 0 <= medium <= high <= 1")
	}
	if c.HighBoost <= 0 || c.MediumBoost <= 0 || c.LowBoost <= 0 {
		return invalid("confidence boosts must be > 0")
	}
	for _, cat := range model.Categories {
		cp, ok := r.CategoryCaps[string(cat)]
		if !ok {
			return invalid("category_caps.%s is required", cat)
		}
		if cp <= 0 {
			return invalid("category_caps.%s must be > 0", cat)
		}
	}
	return nil
}

func (r *Rules) validateControl() error {
	c := r.Control
	if c.BucketMS <= 0 {
		return invalid("control.bucket_ms must be > 0")
	}
	if c.ThresholdMS < c.BucketMS {
		return invalid("control.threshold_ms must be >= control.bucket_ms")
	}
	if c.DecayFraction < 0 || c.DecayFraction > 1 {
		return invalid("control.decay_fraction must be within [0,1]")
	}
	if c.GapResetMS <= 0 {
		return invalid("control.gap_reset_ms must be > 0")
	}
	for k, p := range c.Points {
		if p < 0 {
			return invalid("control.points.%s must be >= 0", k)
		}
	}
	if c.DefaultPoints < 0 {
		return invalid("control.default_points must be >= 0")
	}
	w := r.Work
	if w.Discount <= 0 || w.Discount > 1 {
		return invalid("work.discount must be within (0,1]")
	}
	if w.MinOffensiveEvents < 0 || w.MinControlValue < 0 {
		return invalid("work thresholds must be >= 0")
	}
	return nil
}

func (r *Rules) validateOutcome() error {
	g := r.Gates
	if g.Draw < 0 || g.Threshold108 < g.Draw || g.Threshold107 < g.Threshold108 {
		return invalid("gates must satisfy 0 <= draw <= threshold_10_8 <= threshold_10_7")
	}
	p := r.Primacy
	for _, t := range []model.Tier{model.TierFlash, model.TierHard, model.TierNearFinish} {
		v, ok := p.TierPoints[string(t)]
		if !ok || v < 0 {
			return invalid("primacy.tier_points.%s is required and must be >= 0", t)
		}
	}
	if p.WinnerThreshold <= 0 || p.Threshold108 < p.WinnerThreshold || p.Threshold107 < p.Threshold108 {
		return invalid("primacy thresholds must satisfy 0 < winner <= threshold_10_8 <= threshold_10_7")
	}
	return nil
}

func (r *Rules) validateStreams() error {
	d := r.Detection
	if d.ConfidenceThreshold < 0 || d.ConfidenceThreshold > 1 {
		return invalid("detection.confidence_threshold must be within [0,1]")
	}
	if d.DedupWindowMS < 0 || d.FusionWindowMS < 0 {
		return invalid("detection windows must be >= 0")
	}
	h := r.Hybrid
	if h.CVWeight < 0 || h.JudgeWeight < 0 {
		return invalid("hybrid weights must be >= 0")
	}
	if math.Abs(h.CVWeight+h.JudgeWeight-1) > weightSumTolerance {
		return invalid("hybrid.cv_weight + hybrid.judge_weight must equal 1 (got %v)", h.CVWeight+h.JudgeWeight)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRules, fmt.Sprintf(format, args...))
}
