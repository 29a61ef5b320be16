// Package scoring computes deterministic round score cards from accepted events.
package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/internal/domain/normalize"
	"github.com/okian/ringside/internal/domain/rules"
)

// cancelCheckEvery is how many events are tallied between context checks.
const cancelCheckEvery = 256

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRules replaces the default rule set. The rules are copied.
func WithRules(r rules.Rules) Option {
	return func(e *Engine) {
		e.rules = r.Clone()
	}
}

// Scorer computes a round score card from the accepted events of a round.
type Scorer interface {
	// Score is a pure function of its inputs, honoring ctx for cancellation.
	Score(ctx context.Context, boutID string, round int, events []model.CombatEvent) (model.RoundScoreCard, error)
}

// Tally is the per-corner breakdown of a round before the gates run.
type Tally struct {
	Red         model.CornerBreakdown
	Blue        model.CornerBreakdown
	Normalized  []model.NormalizedEvent
	Windows     []model.ControlWindow
	Confidence  float64
	CVEvents    int
	JudgeEvents int
}

// Corner returns the breakdown of c.
func (t *Tally) Corner(c model.Corner) *model.CornerBreakdown {
	if c == model.CornerRed {
		return &t.Red
	}
	return &t.Blue
}

// Engine scores rounds. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules rules.Rules
}

var _ Scorer = (*Engine)(nil)

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: rules.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *rules.Rules {
	return &e.rules
}

// Score tallies events and applies the gates.
func (e *Engine) Score(ctx context.Context, boutID string, round int, events []model.CombatEvent) (model.RoundScoreCard, error) {
	t, err := e.Tally(ctx, events)
	if err != nil {
		return model.RoundScoreCard{}, err
	}
	return e.Card(boutID, round, &t), nil
}

// Card applies the gates to a tally.
func (e *Engine) Card(boutID string, round int, t *Tally) model.RoundScoreCard {
	o := Decide(&e.rules, &t.Red, &t.Blue)
	return model.RoundScoreCard{
		BoutID:            boutID,
		RoundNum:          round,
		FighterABreakdown: t.Red,
		FighterBBreakdown: t.Blue,
		FighterAScore:     o.Red,
		FighterBScore:     o.Blue,
		Winner:            o.Winner,
		ScoreString:       o.String(),
		Override:          o.Override,
		Confidence:        t.Confidence,
		CVEventCount:      t.CVEvents,
		JudgeEventCount:   t.JudgeEvents,
	}
}

// Tally computes both corner breakdowns. Events are ordered by timestamp then hash first,
// so the result does not depend on arrival order.
func (e *Engine) Tally(ctx context.Context, events []model.CombatEvent) (Tally, error) {
	if err := ctx.Err(); err != nil {
		return Tally{}, fmt.Errorf("context cancelled: %w", err)
	}

	sorted := make([]model.CombatEvent, len(events))
	hashes := make(map[int]string, len(sorted))
	idx := make([]int, len(sorted))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := &events[idx[a]], &events[idx[b]]
		if ea.TimestampMS != eb.TimestampMS {
			return ea.TimestampMS < eb.TimestampMS
		}
		return hashOf(hashes, events, idx[a]) < hashOf(hashes, events, idx[b])
	})
	for i, j := range idx {
		sorted[i] = events[j]
	}

	state := normalize.NewRoundState(&e.rules)
	t := Tally{Normalized: make([]model.NormalizedEvent, 0, len(sorted))}
	var confidence float64
	for i := range sorted {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Tally{}, fmt.Errorf("context cancelled: %w", err)
			}
		}
		ev := sorted[i]
		if !ev.Corner.Valid() {
			continue
		}
		n := state.Normalize(ev)
		t.Normalized = append(t.Normalized, n)

		b := t.Corner(ev.Corner)
		b.EventCount++
		b.Damage += n.DamageWeight
		b.Control += n.ControlWeight
		b.Aggression += n.AggressionWeight
		b.Defense += n.DefenseWeight
		if model.IsOffensive(ev.EventType) {
			b.OffensiveEvents++
		}
		if ev.EventType == model.EventKnockdown {
			b.Knockdowns++
			b.Primacy += e.rules.TierPoints(ev.Tier)
		}
		if ev.Source == model.SourceAutomated {
			t.CVEvents++
		} else {
			t.JudgeEvents++
		}
		confidence += ev.Confidence
	}
	if n := t.CVEvents + t.JudgeEvents; n > 0 {
		t.Confidence = confidence / float64(n)
	}

	t.Windows = ControlWindows(sorted)
	timeValue := ControlValue(&e.rules, t.Windows)
	for _, c := range []model.Corner{model.CornerRed, model.CornerBlue} {
		b := t.Corner(c)
		for _, cat := range model.Categories {
			if state.Capped(c, cat) {
				b.CappedCategories = append(b.CappedCategories, cat)
			}
		}
		e.applyControl(b, timeValue[c])
		b.Sum()
	}
	return t, nil
}

// applyControl adds control time to the control category, clips it to the cap and applies
// the work requirement.
func (e *Engine) applyControl(b *model.CornerBreakdown, timeValue float64) {
	b.ControlTimeValue = timeValue
	b.Control += timeValue
	if limit := e.rules.Cap(model.CategoryControl); b.Control > limit {
		b.Control = limit
		if !containsCategory(b.CappedCategories, model.CategoryControl) {
			b.CappedCategories = append(b.CappedCategories, model.CategoryControl)
		}
	}
	w := e.rules.Work
	if b.Control > 0 && b.Control >= w.MinControlValue && b.OffensiveEvents < w.MinOffensiveEvents {
		b.Control *= w.Discount
		b.ControlDiscounted = true
	}
}

func containsCategory(cs []model.Category, c model.Category) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

func hashOf(cache map[int]string, events []model.CombatEvent, i int) string {
	h, ok := cache[i]
	if !ok {
		h = events[i].Hash()
		cache[i] = h
	}
	return h
}
