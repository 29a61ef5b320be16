// Package service wires the scoring pipeline behind the operations the HTTP API exposes.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/ringside/internal/adapters/archive"
	"github.com/okian/ringside/internal/adapters/broadcast"
	eventqueue "github.com/okian/ringside/internal/adapters/mq/queue"
	workerpool "github.com/okian/ringside/internal/adapters/mq/worker"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/audit"
	"github.com/okian/ringside/internal/domain/detection"
	"github.com/okian/ringside/internal/domain/hybrid"
	"github.com/okian/ringside/internal/domain/ledger"
	"github.com/okian/ringside/internal/domain/rules"
	"github.com/okian/ringside/internal/domain/scoring"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

const (
	defaultQueueSize        = 4096
	defaultSubscriberBuffer = 16
	stopTimeout             = 10 * time.Second
)

var tracer = otel.Tracer("github.com/okian/ringside/internal/app")

// components is everything built by Start. Immutable until Stop.
type components struct {
	store    repository.Store
	archiver archive.Archiver
	ledger   *ledger.Ledger
	chain    *audit.Chain
	engine   *scoring.Engine
	fuser    *hybrid.Fuser
	pipeline *detection.Pipeline
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	hub      *broadcast.Hub
}

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex
	c  *components

	// Configuration
	store            repository.Store
	archiver         archive.Archiver
	rules            rules.Rules
	workerCount      int
	queueSize        int
	subscriberBuffer int
	subscriberPolicy broadcast.Policy
	now              func() time.Time

	// Bout arena
	boutsMu     sync.Mutex
	bouts       map[string]*boutState
	openBouts   int
	closedBouts int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rules:            rules.Default(),
		archiver:         archive.Nop{},
		workerCount:      runtime.NumCPU(),
		queueSize:        defaultQueueSize,
		subscriberBuffer: defaultSubscriberBuffer,
		subscriberPolicy: broadcast.PolicyDropOldest,
		now:              time.Now,
		bouts:            make(map[string]*boutState),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the rules and builds the pipeline. Calling it twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.rules.Validate(); err != nil {
		return err
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.logger.Info(ctx, "starting scoring service...")

	r := s.rules
	c := &components{store: s.store, archiver: s.archiver}
	c.ledger = ledger.New(s.store,
		ledger.WithClock(s.now),
		ledger.WithConflictHook(func(bout string, round, attempt int) {
			metrics.RecordLedgerRetry()
			s.logger.Debug(context.Background(), "ledger insert conflict, retrying",
				logger.String("bout_id", bout), logger.Int("round", round), logger.Int("attempt", attempt))
		}),
	)
	c.chain = audit.New(s.store, audit.WithClock(s.now), audit.WithTamperHook(s.onTamper))
	c.engine = scoring.NewEngine(scoring.WithRules(r))
	c.fuser = hybrid.New(c.engine)
	c.pipeline = detection.NewPipeline(
		detection.WithConfidenceThreshold(r.Detection.ConfidenceThreshold),
		detection.WithDedupWindow(r.Detection.DedupWindowMS),
		detection.WithFusionWindow(r.Detection.FusionWindowMS),
	)
	c.hub = broadcast.NewHub(
		broadcast.WithBuffer(s.subscriberBuffer),
		broadcast.WithPolicy(s.subscriberPolicy),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)
	c.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	c.pool = workerpool.NewPool(s.workerCount, c.queue,
		workerpool.HandlerFunc(func(ctx context.Context, req workerpool.Job) error {
			return s.rescore(ctx, c, req)
		}),
		workerpool.WithPoolLogger(s.logger.Named("worker-pool")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.pool.Start(runCtx)

	s.c = c
	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", c.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.String("subscriber_policy", string(s.subscriberPolicy)),
	)

	return nil
}

// Stop drains the rescore workers and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.started = false
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), stopTimeout)
	defer done()

	s.logger.Info(ctx, "stopping scoring service...")
	if err := c.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	cancel()
	c.hub.Close()
	if err := c.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.logger.Info(ctx, "scoring service stopped")
}

func (s *Service) components() (*components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrEngineNotInitialized
	}
	return s.c, nil
}

// Rules returns a copy of the active scoring rules.
func (s *Service) Rules() rules.Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Clone()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	c, started := s.c, s.started
	s.mu.RUnlock()

	s.boutsMu.Lock()
	open, closed := s.openBouts, s.closedBouts
	s.boutsMu.Unlock()

	stats := map[string]interface{}{
		"started":     started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"boutsOpen":   open,
		"boutsClosed": closed,
	}

	if started {
		ctx := context.Background()
		stats["queueLength"] = c.queue.Len(ctx)
		stats["activeWorkers"] = c.pool.Active()
		stats["subscribers"] = c.hub.Subscribers()
		metrics.UpdateBoutsActive(open)
	}

	return stats
}

func (s *Service) onTamper(boutID string, index int, details string) {
	metrics.RecordAuditTamper()
	s.logger.Error(context.Background(), "audit chain tamper detected",
		logger.String("bout_id", boutID),
		logger.Int("index", index),
		logger.String("details", details),
	)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "service."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func boutAttrs(boutID string, round int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("bout.id", boutID)}
	if round > 0 {
		attrs = append(attrs, attribute.Int("bout.round", round))
	}
	return attrs
}
