// Package ledger assigns gapless, hash-linked sequence numbers to accepted events per (bout, round).
package ledger

import "time"

const defaultMaxRetries = 3

// Option applies a configuration option to a Ledger.
type Option func(*Ledger)

// WithMaxRetries sets how often a conflicting insert is retried.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithClock replaces the server receive clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithConflictHook is called before each retry of a conflicting insert.
func WithConflictHook(fn func(boutID string, round, attempt int)) Option {
	return func(l *Ledger) {
		l.onConflict = fn
	}
}
