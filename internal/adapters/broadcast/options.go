package broadcast

import "github.com/okian/ringside/pkg/logger"

// Policy decides what happens when a subscriber's buffer is full.
type Policy string

const (
	// PolicyDropOldest discards the oldest buffered update to make room.
	PolicyDropOldest Policy = "drop_oldest"
	// PolicyDisconnect closes the subscription.
	PolicyDisconnect Policy = "disconnect"
)

// ParsePolicy maps a configuration string to a Policy. Empty means drop_oldest.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDropOldest:
		return PolicyDropOldest, nil
	case PolicyDisconnect:
		return PolicyDisconnect, nil
	}
	return "", ErrUnknownPolicy
}

const defaultBuffer = 16

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets the per-subscriber channel size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithPolicy sets the slow-subscriber policy.
func WithPolicy(p Policy) Option {
	return func(h *Hub) {
		if p != "" {
			h.policy = p
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
