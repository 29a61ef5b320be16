package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/ringside/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validEvent() model.CombatEvent {
	return model.CombatEvent{
		BoutID:      "bout-1",
		Round:       1,
		ActorID:     "judge-1",
		Corner:      model.CornerRed,
		EventType:   model.EventJab,
		Severity:    0.5,
		Confidence:  0.95,
		TimestampMS: 12_345,
		Source:      model.SourceManual,
		DeviceID:    "tablet-1",
	}
}

func TestCombatEvent_Validate(t *testing.T) {
	convey.Convey("Given a combat event", t, func() {
		convey.Convey("When every field is well formed", func() {
			e := validEvent()

			convey.Convey("Then it should validate", func() {
				convey.So(e.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the bout id is missing", func() {
			e := validEvent()
			e.BoutID = " "
			err := e.Validate()

			convey.Convey("Then it should be a validation error naming the field", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				var ve *model.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Field, convey.ShouldEqual, "bout_id")
			})
		})

		convey.Convey("When severity or confidence is out of range", func() {
			e := validEvent()
			e.Severity = 1.2
			convey.So(errors.Is(e.Validate(), model.ErrValidation), convey.ShouldBeTrue)

			e = validEvent()
			e.Confidence = -0.1
			convey.So(errors.Is(e.Validate(), model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When a knockdown has no tier", func() {
			e := validEvent()
			e.EventType = model.EventKnockdown
			err := e.Validate()

			convey.Convey("Then the tier is required", func() {
				var ve *model.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Field, convey.ShouldEqual, "tier")
			})
		})

		convey.Convey("When a control event has no duration", func() {
			e := validEvent()
			e.EventType = model.EventControl
			e.ControlType = "back"
			err := e.Validate()

			convey.Convey("Then the duration is required", func() {
				var ve *model.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Field, convey.ShouldEqual, "duration_ms")
			})
		})
	})
}

func TestCombatEvent_Fingerprint(t *testing.T) {
	convey.Convey("Given two submissions of the same action", t, func() {
		a := validEvent()
		b := validEvent()
		b.TimestampMS = 12_347
		b.Confidence = 0.7
		b.Severity = 0.9

		convey.Convey("Then timestamps within the same 10ms slot share a hash", func() {
			convey.So(a.Fingerprint(), convey.ShouldEqual, "bout-1|1|judge-1|red|jab|12350|tablet-1")
			convey.So(a.Hash(), convey.ShouldEqual, b.Hash())
			convey.So(len(a.Hash()), convey.ShouldEqual, 64)
		})

		convey.Convey("Then a different device yields a different hash", func() {
			b.DeviceID = "tablet-2"
			convey.So(a.Hash(), convey.ShouldNotEqual, b.Hash())
		})
	})

	convey.Convey("Given timestamps near a rounding boundary", t, func() {
		convey.So(model.RoundTimestamp(1004), convey.ShouldEqual, 1000)
		convey.So(model.RoundTimestamp(1005), convey.ShouldEqual, 1010)
		convey.So(model.RoundTimestamp(0), convey.ShouldEqual, 0)
	})
}

func TestTaxonomy(t *testing.T) {
	convey.Convey("Given the static category mapping", t, func() {
		convey.So(model.CategoryOf(model.EventKnockdown), convey.ShouldEqual, model.CategoryDamage)
		convey.So(model.CategoryOf(model.EventRocked), convey.ShouldEqual, model.CategoryDamage)
		convey.So(model.CategoryOf(model.EventTakedownLanded), convey.ShouldEqual, model.CategoryControl)
		convey.So(model.CategoryOf(model.EventSubmissionAttempt), convey.ShouldEqual, model.CategoryControl)
		convey.So(model.CategoryOf(model.EventSignificantStrike), convey.ShouldEqual, model.CategoryAggression)
		convey.So(model.CategoryOf(model.EventTakedownDefended), convey.ShouldEqual, model.CategoryDefense)
		convey.So(model.CategoryOf("spinning_backfist"), convey.ShouldEqual, model.CategoryAggression)

		convey.So(model.IsOffensive(model.EventSubmissionAttempt), convey.ShouldBeTrue)
		convey.So(model.IsOffensive(model.EventControl), convey.ShouldBeFalse)
	})

	convey.Convey("Given a knockdown event", t, func() {
		e := validEvent()
		e.EventType = model.EventKnockdown
		e.Tier = model.TierNearFinish
		convey.So(e.WeightKey(), convey.ShouldEqual, "knockdown_near_finish")
	})

	convey.Convey("Given score values", t, func() {
		convey.So(model.ScoreString(10, 9), convey.ShouldEqual, "10-9")
		convey.So(model.CornerRed.Opponent(), convey.ShouldEqual, model.CornerBlue)
	})
}
