package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applied to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithMetricsEnabled(false),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the manager should carry them", func() {
				So(m.namespace, ShouldEqual, "test_ns")
				So(m.subsystem, ShouldEqual, "test_sub")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
				So(m.enabled, ShouldBeFalse)
				So(m.registry, ShouldEqual, registry)
			})
		})

		Convey("When given empty values", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "ringside")
				So(m.subsystem, ShouldEqual, "scoring")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsManagerRegistration(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When a counter is touched", func() {
			m.eventsDuplicate.Inc()
			m.detections.WithLabelValues("fused").Inc()

			Convey("Then it should be gathered under the ringside namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				joined := strings.Join(names, ",")
				So(joined, ShouldContainSubstring, "ringside_scoring_events_duplicate_total")
				So(joined, ShouldContainSubstring, "ringside_scoring_detections_total")
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording domain events", func() {
			before := testutil.ToFloat64(globalManager.eventsAccepted.WithLabelValues("manual"))
			RecordEventAccepted("manual")
			RecordEventAccepted("manual")

			Convey("Then the labeled counter should advance", func() {
				So(testutil.ToFloat64(globalManager.eventsAccepted.WithLabelValues("manual")), ShouldEqual, before+2)
			})
		})

		Convey("When recording tamper detection", func() {
			before := testutil.ToFloat64(globalManager.auditTamper)
			RecordAuditTamper()

			Convey("Then the counter should advance by one", func() {
				So(testutil.ToFloat64(globalManager.auditTamper), ShouldEqual, before+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateSubscribers(7)
			UpdateQueueSize(3)
			UpdateQueueUtilization(0.25)

			Convey("Then they should hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.subscribers), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.25)
			})
		})

		Convey("When recording every helper", func() {
			Convey("Then none should panic", func() {
				So(func() {
					RecordEventDuplicate()
					RecordEventRejected("validation")
					RecordDetection("accepted")
					RecordLedgerLatency(1.5)
					RecordLedgerRetry()
					RecordLedgerVerification("valid")
					RecordScoringLatency(2)
					RecordScoreComputation("request")
					RecordScoringError()
					RecordAuditEntry("event_accepted")
					RecordAuditVerification("tampered")
					UpdateBoutsActive(2)
					RecordBoutClosed()
					RecordArchiveError()
					RecordBroadcastSent()
					RecordBroadcastDropped("drop_oldest")
					RecordBroadcastEvicted()
					UpdateQueueCapacity(10)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerCount(4)
					UpdateWorkerActiveCount(1)
					RecordWorkerProcessingLatency(3)
					RecordWorkerError()
					RecordHTTPRequest("/v1/events", "POST", "201")
					RecordHTTPRequestDuration("/v1/events", "POST", "201", 4)
					RecordErrorByComponent("ledger", "conflict")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestDisabledManager(t *testing.T) {
	Convey("Given metrics disabled on the global manager", t, func() {
		saved := globalManager.enabled
		globalManager.enabled = false
		Reset(func() { globalManager.enabled = saved })

		before := testutil.ToFloat64(globalManager.eventsDuplicate)
		RecordEventDuplicate()

		Convey("Then recorders should be no-ops", func() {
			So(testutil.ToFloat64(globalManager.eventsDuplicate), ShouldEqual, before)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("Then it should be the registry the global manager uses", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
			_, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
		})
	})
}
