package normalize_test

import (
	"testing"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/normalize"
	"github.com/okian/ringside/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func event(t model.EventType, corner model.Corner, severity, confidence float64) model.CombatEvent {
	return model.CombatEvent{
		BoutID:     "bout-1",
		Round:      1,
		ActorID:    "judge-1",
		Corner:     corner,
		EventType:  t,
		Severity:   severity,
		Confidence: confidence,
		Source:     model.SourceManual,
		DeviceID:   "tablet-1",
	}
}

func TestRoundState_Normalize(t *testing.T) {
	Convey("Given the default rules", t, func() {
		r := rules.Default()
		s := normalize.NewRoundState(&r)

		Convey("When a jab is normalized at neutral severity", func() {
			n := s.Normalize(event(model.EventJab, model.CornerRed, 0.5, 0.95))

			Convey("Then it weighs 10 in aggression", func() {
				So(n.Category, ShouldEqual, model.CategoryAggression)
				So(n.AggressionWeight, ShouldEqual, 10)
				So(n.TotalWeight, ShouldEqual, 10)
				So(n.Capped, ShouldBeFalse)
				So(n.Breakdown.SeverityMultiplier, ShouldEqual, 1.0)
				So(n.Breakdown.ConfidenceBoost, ShouldEqual, 1.0)
			})
		})

		Convey("When knockdowns of each tier are normalized", func() {
			weights := map[model.Tier]float64{}
			for _, tier := range []model.Tier{model.TierFlash, model.TierHard, model.TierNearFinish} {
				e := event(model.EventKnockdown, model.CornerRed, 0.5, 0.95)
				e.Tier = tier
				weights[tier] = normalize.NewRoundState(&r).Normalize(e).DamageWeight
			}

			Convey("Then they weigh 50, 75 and 100", func() {
				So(weights[model.TierFlash], ShouldEqual, 50)
				So(weights[model.TierHard], ShouldEqual, 75)
				So(weights[model.TierNearFinish], ShouldEqual, 100)
			})
		})

		Convey("When confidence and severity vary", func() {
			low := s.Normalize(event(model.EventJab, model.CornerBlue, 0, 0.5))
			high := s.Normalize(event(model.EventJab, model.CornerBlue, 1, 0.8))

			Convey("Then the multiplier and boost follow the configured tiers", func() {
				So(low.Breakdown.AdjustedWeight, ShouldAlmostEqual, 10*0.5*0.75)
				So(high.Breakdown.AdjustedWeight, ShouldAlmostEqual, 10*1.5*0.9)
			})
		})

		Convey("When an unknown type is normalized", func() {
			n := s.Normalize(event("spinning_backfist", model.CornerRed, 0.5, 0.95))

			Convey("Then it uses the default weight as aggression", func() {
				So(n.Category, ShouldEqual, model.CategoryAggression)
				So(n.TotalWeight, ShouldAlmostEqual, 0.1)
			})
		})

		Convey("When a corner exceeds the defense cap", func() {
			var last model.NormalizedEvent
			for i := 0; i < 14; i++ {
				last = s.Normalize(event(model.EventTakedownDefended, model.CornerBlue, 0.5, 0.95))
			}

			Convey("Then the overflow is clipped and flagged", func() {
				So(s.Total(model.CornerBlue, model.CategoryDefense), ShouldEqual, 100)
				So(last.Capped, ShouldBeTrue)
				So(last.TotalWeight, ShouldEqual, 0)
				So(s.Capped(model.CornerBlue, model.CategoryDefense), ShouldBeTrue)
				So(s.Capped(model.CornerRed, model.CategoryDefense), ShouldBeFalse)
			})
		})

		Convey("When both corners score", func() {
			s.Normalize(event(model.EventJab, model.CornerRed, 0.5, 0.95))
			s.Normalize(event(model.EventHeadKick, model.CornerBlue, 0.5, 0.95))
			snap := s.Snapshot()

			Convey("Then the snapshot separates them", func() {
				So(snap[model.CornerRed][model.CategoryAggression], ShouldEqual, 10)
				So(snap[model.CornerBlue][model.CategoryDamage], ShouldEqual, 20)
			})
		})
	})
}
