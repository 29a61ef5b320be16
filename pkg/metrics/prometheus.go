// Package metrics provides Prometheus metrics for the ringside scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ringside service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ingestion
	eventsAccepted   *prometheus.CounterVec
	eventsDuplicate  prometheus.Counter
	eventsRejected   *prometheus.CounterVec
	detections       *prometheus.CounterVec
	ledgerLatency    prometheus.Histogram
	ledgerRetries    prometheus.Counter
	ledgerVerifyRuns *prometheus.CounterVec

	// Scoring
	scoringLatency    prometheus.Histogram
	scoreComputations *prometheus.CounterVec
	scoringErrors     prometheus.Counter

	// Audit
	auditEntries       *prometheus.CounterVec
	auditVerifications *prometheus.CounterVec
	auditTamper        prometheus.Counter

	// Bout lifecycle
	boutsActive   prometheus.Gauge
	boutsClosed   prometheus.Counter
	archiveErrors prometheus.Counter

	// Live broadcast
	subscribers      prometheus.Gauge
	broadcastSent    prometheus.Counter
	broadcastDropped *prometheus.CounterVec
	broadcastEvicted prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ringside",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.eventsAccepted = m.counterVec("events_accepted_total", "Events accepted into a round ledger by source", "source")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Resubmissions resolved to an existing ledger entry")
	m.eventsRejected = m.counterVec("events_rejected_total", "Events rejected before the ledger by reason", "reason")
	m.detections = m.counterVec("detections_total", "Raw detections by filter decision", "decision")
	m.ledgerLatency = m.histogram("ledger_submit_latency_milliseconds", "Ledger submit latency in milliseconds")
	m.ledgerRetries = m.counter("ledger_conflict_retries_total", "Ledger inserts retried after a unique conflict")
	m.ledgerVerifyRuns = m.counterVec("ledger_verifications_total", "Ledger verifications by result", "result")

	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Round score computation latency in milliseconds")
	m.scoreComputations = m.counterVec("score_computations_total", "Score cards computed by trigger", "trigger")
	m.scoringErrors = m.counter("scoring_errors_total", "Score computations that failed")

	m.auditEntries = m.counterVec("audit_entries_total", "Audit entries appended by event type", "event_type")
	m.auditVerifications = m.counterVec("audit_verifications_total", "Audit chain verifications by result", "result")
	m.auditTamper = m.counter("audit_tamper_detected_total", "Audit chain verifications that found tampering")

	m.boutsActive = m.gauge("bouts_active", "Bouts currently open")
	m.boutsClosed = m.counter("bouts_closed_total", "Bouts closed and archived")
	m.archiveErrors = m.counter("archive_errors_total", "Closed-bout archive uploads that failed")

	m.subscribers = m.gauge("subscribers", "Live score subscribers connected")
	m.broadcastSent = m.counter("broadcast_sent_total", "Score updates delivered to subscriber buffers")
	m.broadcastDropped = m.counterVec("broadcast_dropped_total", "Score updates dropped for slow subscribers by policy", "policy")
	m.broadcastEvicted = m.counter("broadcast_disconnects_total", "Subscribers disconnected for falling behind")

	m.queueSize = m.gauge("queue_size", "Current size of the rescore queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the rescore queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Rescore queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Rescore jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Rescore jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rescore jobs dropped at enqueue")

	m.workerCount = m.gauge("worker_count", "Configured rescore workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Rescore workers currently processing")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Rescore job latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total", "Rescore jobs that failed")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordEventAccepted counts an event accepted into a ledger.
func RecordEventAccepted(source string) {
	if on() {
		globalManager.eventsAccepted.WithLabelValues(source).Inc()
	}
}

// RecordEventDuplicate counts a resubmission.
func RecordEventDuplicate() {
	if on() {
		globalManager.eventsDuplicate.Inc()
	}
}

// RecordEventRejected counts an event refused before the ledger.
func RecordEventRejected(reason string) {
	if on() {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

// RecordDetection counts a raw detection decision.
func RecordDetection(decision string) {
	if on() {
		globalManager.detections.WithLabelValues(decision).Inc()
	}
}

// RecordLedgerLatency records ledger submit latency in milliseconds.
func RecordLedgerLatency(latencyMs float64) {
	if on() {
		globalManager.ledgerLatency.Observe(latencyMs)
	}
}

// RecordLedgerRetry counts a conflict retry.
func RecordLedgerRetry() {
	if on() {
		globalManager.ledgerRetries.Inc()
	}
}

// RecordLedgerVerification counts a ledger verification by result.
func RecordLedgerVerification(result string) {
	if on() {
		globalManager.ledgerVerifyRuns.WithLabelValues(result).Inc()
	}
}

// RecordScoringLatency records score computation latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	if on() {
		globalManager.scoringLatency.Observe(latencyMs)
	}
}

// RecordScoreComputation counts a computed card by trigger (request, rescore, finalize).
func RecordScoreComputation(trigger string) {
	if on() {
		globalManager.scoreComputations.WithLabelValues(trigger).Inc()
	}
}

// RecordScoringError counts a failed computation.
func RecordScoringError() {
	if on() {
		globalManager.scoringErrors.Inc()
	}
}

// RecordAuditEntry counts an appended audit entry.
func RecordAuditEntry(eventType string) {
	if on() {
		globalManager.auditEntries.WithLabelValues(eventType).Inc()
	}
}

// RecordAuditVerification counts a chain verification by result.
func RecordAuditVerification(result string) {
	if on() {
		globalManager.auditVerifications.WithLabelValues(result).Inc()
	}
}

// RecordAuditTamper counts a verification that found tampering.
func RecordAuditTamper() {
	if on() {
		globalManager.auditTamper.Inc()
	}
}

// UpdateBoutsActive sets the number of open bouts.
func UpdateBoutsActive(count int) {
	if on() {
		globalManager.boutsActive.Set(float64(count))
	}
}

// RecordBoutClosed counts a closed bout.
func RecordBoutClosed() {
	if on() {
		globalManager.boutsClosed.Inc()
	}
}

// RecordArchiveError counts a failed archive upload.
func RecordArchiveError() {
	if on() {
		globalManager.archiveErrors.Inc()
	}
}

// UpdateSubscribers sets the number of live subscribers.
func UpdateSubscribers(count int) {
	if on() {
		globalManager.subscribers.Set(float64(count))
	}
}

// RecordBroadcastSent counts a delivered update.
func RecordBroadcastSent() {
	if on() {
		globalManager.broadcastSent.Inc()
	}
}

// RecordBroadcastDropped counts an update dropped under policy.
func RecordBroadcastDropped(policy string) {
	if on() {
		globalManager.broadcastDropped.WithLabelValues(policy).Inc()
	}
}

// RecordBroadcastEvicted counts a subscriber disconnected for falling behind.
func RecordBroadcastEvicted() {
	if on() {
		globalManager.broadcastEvicted.Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if on() {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueueRate.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if on() {
		globalManager.queueDequeueRate.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if on() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if on() {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if on() {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if on() {
		globalManager.workerErrorRate.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
