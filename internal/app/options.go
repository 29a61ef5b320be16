// Package service wires the scoring pipeline behind the operations the HTTP API exposes.
package service

import (
	"time"

	"github.com/okian/ringside/internal/adapters/archive"
	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/rules"
	"github.com/okian/ringside/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of rescore workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the rescore queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRules replaces the default scoring rules. Rules are validated at Start.
func WithRules(r rules.Rules) Option {
	return func(s *Service) {
		s.rules = r.Clone()
	}
}

// WithStore sets the ledger and audit backend. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithArchiver sets the closed-bout sink. Defaults to discarding bundles.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) {
		if a != nil {
			s.archiver = a
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber live update buffer.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithSubscriberPolicy sets what happens to subscribers that fall behind.
func WithSubscriberPolicy(p broadcast.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.subscriberPolicy = p
		}
	}
}

// WithClock replaces the wall clock used for receive and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
