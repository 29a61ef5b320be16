package detection_test

import (
	"sync"
	"testing"

	"github.com/okian/ringside/internal/domain/detection"
	"github.com/okian/ringside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func det(ts int64, vendor string, confidence float64) model.CombatEvent {
	return model.CombatEvent{
		BoutID:      "bout-1",
		Round:       1,
		ActorID:     "cv",
		Corner:      model.CornerRed,
		EventType:   model.EventJab,
		Severity:    0.5,
		Confidence:  confidence,
		TimestampMS: ts,
		Source:      model.SourceAutomated,
		VendorID:    vendor,
		DeviceID:    "cam-" + vendor,
	}
}

func decisions(r detection.Result) []detection.Decision {
	out := make([]detection.Decision, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Decision
	}
	return out
}

func TestPipeline_Process(t *testing.T) {
	Convey("Given a pipeline with default options", t, func() {
		p := detection.NewPipeline()

		Convey("When detections of one key arrive at 1000, 1030, 1050 and 1150ms", func() {
			r := p.Process([]model.CombatEvent{
				det(1000, "a", 0.9),
				det(1030, "a", 0.9),
				det(1050, "a", 0.9),
				det(1150, "a", 0.9),
			})

			Convey("Then the first three collapse and the fourth is independent", func() {
				So(decisions(r), ShouldResemble, []detection.Decision{
					detection.DecisionAccepted,
					detection.DecisionDuplicateWithinWindow,
					detection.DecisionDuplicateWithinWindow,
					detection.DecisionAccepted,
				})
				So(len(r.Accepted), ShouldEqual, 2)
				So(r.Accepted[1].Event.TimestampMS, ShouldEqual, 1150)
			})
		})

		Convey("When accepted candidates are released", func() {
			first := p.Process([]model.CombatEvent{det(1000, "a", 0.9), det(1150, "a", 0.9)})
			p.Release(first.Accepted...)
			again := p.Process([]model.CombatEvent{det(1000, "a", 0.9), det(1150, "a", 0.9)})

			Convey("Then a resubmission is accepted again", func() {
				So(decisions(again), ShouldResemble, []detection.Decision{
					detection.DecisionAccepted,
					detection.DecisionAccepted,
				})
			})
		})

		Convey("When the same timestamps arrive one call at a time", func() {
			var accepted int
			for _, ts := range []int64{1000, 1030, 1050, 1150} {
				accepted += len(p.Process([]model.CombatEvent{det(ts, "a", 0.9)}).Accepted)
			}

			Convey("Then the window state carries across calls", func() {
				So(accepted, ShouldEqual, 2)
			})
		})

		Convey("When a detection is below the confidence threshold", func() {
			r := p.Process([]model.CombatEvent{det(1000, "a", 0.69)})

			Convey("Then it is rejected as low confidence without an anchor", func() {
				So(decisions(r), ShouldResemble, []detection.Decision{detection.DecisionLowConfidence})
				So(len(p.Process([]model.CombatEvent{det(1010, "a", 0.9)}).Accepted), ShouldEqual, 1)
			})
		})

		Convey("When two cameras see the same action 20ms apart", func() {
			a := det(2000, "cam-east", 0.8)
			b := det(2020, "cam-west", 1.0)
			b.Severity = 0.9
			r := p.Process([]model.CombatEvent{b, a})

			Convey("Then they fuse into one canonical event", func() {
				So(len(r.Accepted), ShouldEqual, 1)
				c := r.Accepted[0]
				So(c.Canonical, ShouldBeTrue)
				So(c.Event.Confidence, ShouldAlmostEqual, 0.9)
				So(c.Event.Severity, ShouldEqual, 0.9)
				So(c.Event.TimestampMS, ShouldEqual, 2000)
				So(c.Vendors, ShouldResemble, []string{"cam-east", "cam-west"})
				So(decisions(r), ShouldResemble, []detection.Decision{
					detection.DecisionFused,
					detection.DecisionAccepted,
				})
			})
		})

		Convey("When cameras are further apart than the fusion window", func() {
			r := p.Process([]model.CombatEvent{det(3000, "cam-east", 0.9), det(3040, "cam-west", 0.9)})

			Convey("Then no fusion happens and the dedup window rejects the second", func() {
				So(len(r.Accepted), ShouldEqual, 1)
				So(r.Accepted[0].Canonical, ShouldBeFalse)
				So(r.Outcomes[1].Decision, ShouldEqual, detection.DecisionDuplicateWithinWindow)
			})
		})
	})
}

func TestGate_Admit(t *testing.T) {
	Convey("Given a gate with a 100ms window", t, func() {
		g := detection.NewGate(100)
		k := detection.Key{BoutID: "b", Round: 1, Corner: model.CornerBlue, EventType: model.EventHook}

		Convey("When detections arrive out of order", func() {
			So(g.Admit(k, 500), ShouldBeNil)
			So(g.Admit(k, 300), ShouldBeNil)

			Convey("Then both neighbours are checked", func() {
				So(g.Admit(k, 399), ShouldEqual, detection.ErrDuplicateWithinWindow)
				So(g.Admit(k, 401), ShouldEqual, detection.ErrDuplicateWithinWindow)
				So(g.Admit(k, 400), ShouldBeNil)
			})
		})

		Convey("When an admitted anchor is released", func() {
			So(g.Admit(k, 1000), ShouldBeNil)
			So(g.Admit(k, 2000), ShouldBeNil)
			g.Release(k, 1000)

			Convey("Then the same detection is admitted again", func() {
				So(g.Admit(k, 1000), ShouldBeNil)
			})
			Convey("And the other anchors still hold", func() {
				So(g.Admit(k, 2050), ShouldEqual, detection.ErrDuplicateWithinWindow)
			})
			Convey("And releasing an unknown timestamp changes nothing", func() {
				g.Release(k, 1500)
				g.Release(detection.Key{BoutID: "other"}, 1000)
				So(g.Admit(k, 1950), ShouldEqual, detection.ErrDuplicateWithinWindow)
				So(g.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the last anchor of a key is released", func() {
			So(g.Admit(k, 10), ShouldBeNil)
			g.Release(k, 10)

			Convey("Then the key is dropped", func() {
				So(g.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a bout is forgotten", func() {
			So(g.Admit(k, 0), ShouldBeNil)
			g.Forget("b")

			Convey("Then its keys are released", func() {
				So(g.Len(), ShouldEqual, 0)
				So(g.Admit(k, 0), ShouldBeNil)
			})
		})

		Convey("When many goroutines admit the same timestamp", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			var ok int
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if g.Admit(k, 7000) == nil {
						mu.Lock()
						ok++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(ok, ShouldEqual, 1)
			})
		})
	})
}
