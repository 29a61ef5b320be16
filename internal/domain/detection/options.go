// Package detection filters raw detections and fuses multi-camera views of the same action.
package detection

// Default filter parameters.
const (
	defaultConfidenceThreshold = 0.7
	defaultDedupWindowMS       = 100
	defaultFusionWindowMS      = 33
)

// Option applies a configuration option to a Pipeline.
type Option func(*Pipeline)

// WithConfidenceThreshold sets the minimum accepted confidence.
func WithConfidenceThreshold(threshold float64) Option {
	return func(p *Pipeline) {
		if threshold >= 0 && threshold <= 1 {
			p.threshold = threshold
		}
	}
}

// WithDedupWindow sets the per-key window within which later detections are duplicates.
func WithDedupWindow(ms int64) Option {
	return func(p *Pipeline) {
		if ms >= 0 {
			p.dedupWindow = ms
		}
	}
}

// WithFusionWindow sets the co-occurrence window for multi-camera fusion.
func WithFusionWindow(ms int64) Option {
	return func(p *Pipeline) {
		if ms >= 0 {
			p.fusionWindow = ms
		}
	}
}
