// Package rules holds every tunable scoring parameter. Values are loaded once at startup
// and never mutated afterwards.
package rules

import "github.com/okian/ringside/internal/domain/model"

// SeverityRange interpolates severity into a multiplier.
type SeverityRange struct {
	Min float64 `koanf:"min"`
	Max float64 `koanf:"max"`
}

// ConfidenceTiers maps event confidence onto a boost.
type ConfidenceTiers struct {
	High        float64 `koanf:"high"`
	Medium      float64 `koanf:"medium"`
	HighBoost   float64 `koanf:"high_boost"`
	MediumBoost float64 `koanf:"medium_boost"`
	LowBoost    float64 `koanf:"low_boost"`
}

// Control configures control-time bucketing and decay.
type Control struct {
	BucketMS      int64              `koanf:"bucket_ms"`
	ThresholdMS   int64              `koanf:"threshold_ms"`
	DecayFraction float64            `koanf:"decay_fraction"`
	GapResetMS    int64              `koanf:"gap_reset_ms"`
	Points        map[string]float64 `koanf:"points"`
	DefaultPoints float64            `koanf:"default_points"`
}

// Work is the control-without-work discount.
type Work struct {
	MinControlValue    float64 `koanf:"min_control_value"`
	MinOffensiveEvents int     `koanf:"min_offensive_events"`
	Discount           float64 `koanf:"discount"`
}

// Gates are the total-differential thresholds.
type Gates struct {
	Draw         float64 `koanf:"draw"`
	Threshold108 float64 `koanf:"threshold_10_8"`
	Threshold107 float64 `koanf:"threshold_10_7"`
}

// Primacy configures knockdown-driven overrides.
type Primacy struct {
	TierPoints      map[string]float64 `koanf:"tier_points"`
	WinnerThreshold float64            `koanf:"winner_threshold"`
	Threshold108    float64            `koanf:"threshold_10_8"`
	Threshold107    float64            `koanf:"threshold_10_7"`
}

// Detection configures the raw detection filter.
type Detection struct {
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	DedupWindowMS       int64   `koanf:"dedup_window_ms"`
	FusionWindowMS      int64   `koanf:"fusion_window_ms"`
}

// Hybrid weights the detector and judge streams.
type Hybrid struct {
	CVWeight    float64 `koanf:"cv_weight"`
	JudgeWeight float64 `koanf:"judge_weight"`
}

// Rules is the complete scoring configuration.
type Rules struct {
	BaseWeights   map[string]float64 `koanf:"base_weights"`
	DefaultWeight float64            `koanf:"default_weight"`
	Severity      SeverityRange      `koanf:"severity"`
	Confidence    ConfidenceTiers    `koanf:"confidence"`
	CategoryCaps  map[string]float64 `koanf:"category_caps"`
	Control       Control            `koanf:"control"`
	Work          Work               `koanf:"work"`
	Gates         Gates              `koanf:"gates"`
	Primacy       Primacy            `koanf:"primacy"`
	Detection     Detection          `koanf:"detection"`
	Hybrid        Hybrid             `koanf:"hybrid"`
}

// BaseWeight returns the configured weight for key, or the default weight.
func (r *Rules) BaseWeight(key string) float64 {
	if w, ok := r.BaseWeights[key]; ok {
		return w
	}
	return r.DefaultWeight
}

// Cap returns the per-round cap for category c.
func (r *Rules) Cap(c model.Category) float64 {
	return r.CategoryCaps[string(c)]
}

// ControlPoints returns the per-bucket value of a control type.
func (r *Rules) ControlPoints(controlType string) float64 {
	if p, ok := r.Control.Points[controlType]; ok {
		return p
	}
	return r.Control.DefaultPoints
}

// TierPoints returns the primacy points of a knockdown tier.
func (r *Rules) TierPoints(t model.Tier) float64 {
	return r.Primacy.TierPoints[string(t)]
}

// ConfidenceBoost maps confidence onto its tier boost.
func (r *Rules) ConfidenceBoost(confidence float64) float64 {
	switch {
	case confidence >= r.Confidence.High:
		return r.Confidence.HighBoost
	case confidence >= r.Confidence.Medium:
		return r.Confidence.MediumBoost
	default:
		return r.Confidence.LowBoost
	}
}

// SeverityMultiplier interpolates severity over the configured range.
func (r *Rules) SeverityMultiplier(severity float64) float64 {
	return r.Severity.Min + (r.Severity.Max-r.Severity.Min)*severity
}

// Clone returns a deep copy so callers cannot alias the maps.
func (r Rules) Clone() Rules {
	r.BaseWeights = cloneMap(r.BaseWeights)
	r.CategoryCaps = cloneMap(r.CategoryCaps)
	r.Control.Points = cloneMap(r.Control.Points)
	r.Primacy.TierPoints = cloneMap(r.Primacy.TierPoints)
	return r
}

func cloneMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
