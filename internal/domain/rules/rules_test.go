package rules_test

import (
	"errors"
	"testing"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefault(t *testing.T) {
	Convey("Given the default rule set", t, func() {
		r := rules.Default()

		Convey("Then it should validate", func() {
			So(r.Validate(), ShouldBeNil)
		})

		Convey("Then a jab at neutral severity and high confidence is worth 10", func() {
			w := r.BaseWeight("jab") * r.SeverityMultiplier(0.5) * r.ConfidenceBoost(0.95)
			So(w, ShouldEqual, 10)
		})

		Convey("Then knockdown tiers are 50, 75 and 100", func() {
			So(r.BaseWeight("knockdown_flash"), ShouldEqual, 50)
			So(r.BaseWeight("knockdown_hard"), ShouldEqual, 75)
			So(r.BaseWeight("knockdown_near_finish"), ShouldEqual, 100)
		})

		Convey("Then unknown types fall back to the default weight", func() {
			So(r.BaseWeight("spinning_backfist"), ShouldEqual, 0.1)
			So(r.ControlPoints("crucifix"), ShouldEqual, r.Control.DefaultPoints)
		})

		Convey("Then confidence tiers map onto boosts", func() {
			So(r.ConfidenceBoost(0.9), ShouldEqual, 1.0)
			So(r.ConfidenceBoost(0.7), ShouldEqual, 0.9)
			So(r.ConfidenceBoost(0.69), ShouldEqual, 0.75)
		})

		Convey("Then caps and tier points are reachable by typed keys", func() {
			So(r.Cap(model.CategoryDamage), ShouldEqual, 400)
			So(r.TierPoints(model.TierNearFinish), ShouldEqual, 3)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a rule set with a broken field", t, func() {
		cases := map[string]func(*rules.Rules){
			"hybrid weights off by a tenth": func(r *rules.Rules) { r.Hybrid.JudgeWeight = 0.4 },
			"missing category cap":          func(r *rules.Rules) { delete(r.CategoryCaps, "defense") },
			"missing knockdown tier":        func(r *rules.Rules) { delete(r.BaseWeights, "knockdown_hard") },
			"zero bucket":                   func(r *rules.Rules) { r.Control.BucketMS = 0 },
			"decay above one":               func(r *rules.Rules) { r.Control.DecayFraction = 1.5 },
			"inverted gates":                func(r *rules.Rules) { r.Gates.Threshold107 = 10 },
			"inverted severity":             func(r *rules.Rules) { r.Severity.Max = 0.1 },
			"threshold above one":           func(r *rules.Rules) { r.Detection.ConfidenceThreshold = 1.1 },
			"zero discount":                 func(r *rules.Rules) { r.Work.Discount = 0 },
			"inverted primacy":              func(r *rules.Rules) { r.Primacy.Threshold107 = 1 },
		}

		for name, mutate := range cases {
			Convey("When "+name, func() {
				r := rules.Default()
				mutate(&r)

				Convey("Then validation should fail with ErrInvalidRules", func() {
					So(errors.Is(r.Validate(), rules.ErrInvalidRules), ShouldBeTrue)
				})
			})
		}
	})

	Convey("Given a cloned rule set", t, func() {
		r := rules.Default()
		c := r.Clone()
		c.BaseWeights["jab"] = 99

		Convey("Then the original is untouched", func() {
			So(r.BaseWeights["jab"], ShouldEqual, 10)
		})
	})
}
