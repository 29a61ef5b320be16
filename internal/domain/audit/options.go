// Package audit keeps a tamper-evident, hash-linked record of every accepted decision per bout.
package audit

import "time"

// Option applies a configuration option to a Chain.
type Option func(*Chain)

// WithClock replaces the entry timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTamperHook registers fn to be called whenever verification finds tampering.
func WithTamperHook(fn func(boutID string, index int, details string)) Option {
	return func(c *Chain) {
		c.onTamper = fn
	}
}
