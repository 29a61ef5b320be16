// Package rules holds every tunable scoring parameter. Values are loaded once at startup
// and never mutated afterwards.
package rules

// Default returns the stock rule set. A jab at neutral severity and high confidence is worth 10.
func Default() Rules {
	return Rules{
		BaseWeights: map[string]float64{
			"jab":                   10,
			"cross":                 10,
			"hook":                  12,
			"uppercut":              12,
			"body_kick":             12,
			"leg_kick":              8,
			"significant_strike":    15,
			"head_kick":             20,
			"elbow":                 15,
			"knee":                  15,
			"rocked":                30,
			"momentum_swing":        10,
			"knockdown_flash":       50,
			"knockdown_hard":        75,
			"knockdown_near_finish": 100,
			"submission_attempt":    20,
			"takedown_landed":       15,
			"takedown_defended":     8,
			"control":               0,
			"control_start":         0,
			"control_end":           0,
		},
		DefaultWeight: 0.1,
		Severity:      SeverityRange{Min: 0.5, Max: 1.5},
		Confidence: ConfidenceTiers{
			High:        0.9,
			Medium:      0.7,
			HighBoost:   1.0,
			MediumBoost: 0.9,
			LowBoost:    0.75,
		},
		CategoryCaps: map[string]float64{
			"damage":     400,
			"control":    300,
			"aggression": 250,
			"defense":    100,
		},
		Control: Control{
			BucketMS:      10_000,
			ThresholdMS:   60_000,
			DecayFraction: 0.5,
			GapResetMS:    15_000,
			Points: map[string]float64{
				"back":         5,
				"mount":        5,
				"side_control": 4,
				"half_guard":   3,
				"clinch":       2,
				"cage":         1,
			},
			DefaultPoints: 2,
		},
		Work: Work{
			MinControlValue:    20,
			MinOffensiveEvents: 3,
			Discount:           0.75,
		},
		Gates: Gates{
			Draw:         5,
			Threshold108: 200,
			Threshold107: 400,
		},
		Primacy: Primacy{
			TierPoints: map[string]float64{
				"flash":       1,
				"hard":        2,
				"near_finish": 3,
			},
			WinnerThreshold: 2,
			Threshold108:    3,
			Threshold107:    6,
		},
		Detection: Detection{
			ConfidenceThreshold: 0.7,
			DedupWindowMS:       100,
			FusionWindowMS:      33,
		},
		Hybrid: Hybrid{
			CVWeight:    0.7,
			JudgeWeight: 0.3,
		},
	}
}
