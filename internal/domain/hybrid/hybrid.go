// Package hybrid fuses the detector-derived and judge-derived score streams into one official card.
package hybrid

import (
	"context"
	"math"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/scoring"
)

// Result is the official card plus the per-stream cards it was fused from.
type Result struct {
	Card              model.RoundScoreCard `json:"card"`
	CV                model.RoundScoreCard `json:"cv"`
	Judge             model.RoundScoreCard `json:"judge"`
	CVContribution    float64              `json:"cv_contribution"`
	JudgeContribution float64              `json:"judge_contribution"`
}

// Fuser scores each stream separately and combines them.
type Fuser struct {
	engine *scoring.Engine
}

// New creates a fuser over engine. Weights come from the engine's rules.
func New(engine *scoring.Engine) *Fuser {
	return &Fuser{engine: engine}
}

// Split partitions events by source.
func Split(events []model.CombatEvent) (cv, judge []model.CombatEvent) {
	for _, e := range events {
		if e.Source == model.SourceAutomated {
			cv = append(cv, e)
		} else {
			judge = append(judge, e)
		}
	}
	return cv, judge
}

// Weights returns the applied (cv, judge) pair. An empty stream cedes its weight to the other.
// The judge weight is always 1 - cv so the pair sums to exactly one.
func (f *Fuser) Weights(cvEvents, judgeEvents int) (float64, float64) {
	cv := f.engine.Rules().Hybrid.CVWeight
	switch {
	case cvEvents == 0 && judgeEvents > 0:
		cv = 0
	case judgeEvents == 0 && cvEvents > 0:
		cv = 1
	}
	return cv, 1 - cv
}

// Fuse computes the official card for a round.
func (f *Fuser) Fuse(ctx context.Context, boutID string, round int, events []model.CombatEvent) (Result, error) {
	cvEvents, judgeEvents := Split(events)
	cvTally, err := f.engine.Tally(ctx, cvEvents)
	if err != nil {
		return Result{}, err
	}
	judgeTally, err := f.engine.Tally(ctx, judgeEvents)
	if err != nil {
		return Result{}, err
	}

	wCV, wJudge := f.Weights(len(cvEvents), len(judgeEvents))
	red := blend(&cvTally.Red, &judgeTally.Red, wCV, wJudge)
	blue := blend(&cvTally.Blue, &judgeTally.Blue, wCV, wJudge)

	o := scoring.Decide(f.engine.Rules(), &red, &blue)
	card := model.RoundScoreCard{
		BoutID:            boutID,
		RoundNum:          round,
		FighterABreakdown: red,
		FighterBBreakdown: blue,
		FighterAScore:     o.Red,
		FighterBScore:     o.Blue,
		Winner:            o.Winner,
		ScoreString:       o.String(),
		Override:          o.Override,
		Confidence:        wCV*cvTally.Confidence + wJudge*judgeTally.Confidence,
		CVEventCount:      len(cvEvents),
		JudgeEventCount:   len(judgeEvents),
	}

	return Result{
		Card:              card,
		CV:                f.engine.Card(boutID, round, &cvTally),
		Judge:             f.engine.Card(boutID, round, &judgeTally),
		CVContribution:    wCV,
		JudgeContribution: wJudge,
	}, nil
}

// blend weighs each category of the two streams. Primacy takes the stronger stream so a
// knockdown seen by either one still counts in full.
func blend(cv, judge *model.CornerBreakdown, wCV, wJudge float64) model.CornerBreakdown {
	mix := func(a, b float64) float64 { return wCV*a + wJudge*b }
	out := model.CornerBreakdown{
		Damage:            mix(cv.Damage, judge.Damage),
		Control:           mix(cv.Control, judge.Control),
		Aggression:        mix(cv.Aggression, judge.Aggression),
		Defense:           mix(cv.Defense, judge.Defense),
		ControlTimeValue:  mix(cv.ControlTimeValue, judge.ControlTimeValue),
		ControlDiscounted: cv.ControlDiscounted || judge.ControlDiscounted,
		CappedCategories:  union(cv.CappedCategories, judge.CappedCategories),
		Knockdowns:        max(cv.Knockdowns, judge.Knockdowns),
		Primacy:           math.Max(cv.Primacy, judge.Primacy),
		OffensiveEvents:   cv.OffensiveEvents + judge.OffensiveEvents,
		EventCount:        cv.EventCount + judge.EventCount,
	}
	out.Sum()
	return out
}

func union(a, b []model.Category) []model.Category {
	var out []model.Category
	seen := make(map[model.Category]bool, len(a)+len(b))
	for _, c := range append(append([]model.Category(nil), a...), b...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
