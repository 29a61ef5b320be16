// Package detection filters raw detections and fuses multi-camera views of the same action.
package detection

import "github.com/okian/ringside/internal/domain/model"

// Decision is the fate of one input detection.
type Decision string

const (
	DecisionAccepted              Decision = "accepted"
	DecisionLowConfidence         Decision = "low_confidence"
	DecisionDuplicateWithinWindow Decision = "duplicate_within_window"
	DecisionFused                 Decision = "fused"
)

// Outcome reports the decision for the input at Index.
type Outcome struct {
	Index    int      `json:"index"`
	Decision Decision `json:"decision"`
}

// Result is the output of one Process call.
type Result struct {
	Outcomes []Outcome
	Accepted []Candidate
}

// Pipeline runs confidence filtering, fusion and the window gate in that order.
type Pipeline struct {
	threshold    float64
	dedupWindow  int64
	fusionWindow int64
	gate         *Gate
}

// NewPipeline creates a pipeline with configuration options.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		threshold:    defaultConfidenceThreshold,
		dedupWindow:  defaultDedupWindowMS,
		fusionWindow: defaultFusionWindowMS,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.gate = NewGate(p.dedupWindow)
	return p
}

// Check applies the confidence threshold to a single detection.
func (p *Pipeline) Check(e *model.CombatEvent) error {
	if e.Confidence < p.threshold {
		return ErrLowConfidence
	}
	return nil
}

// Process filters a batch. Callers validate events first. Rejections are decisions, not errors.
func (p *Pipeline) Process(batch []model.CombatEvent) Result {
	outcomes := make([]Outcome, len(batch))
	kept := make([]model.CombatEvent, 0, len(batch))
	origin := make([]int, 0, len(batch))
	for i := range batch {
		outcomes[i] = Outcome{Index: i}
		if err := p.Check(&batch[i]); err != nil {
			outcomes[i].Decision = DecisionLowConfidence
			continue
		}
		kept = append(kept, batch[i])
		origin = append(origin, i)
	}

	var accepted []Candidate
	for _, c := range Fuse(kept, p.fusionWindow) {
		for j, m := range c.Members {
			c.Members[j] = origin[m]
		}
		if err := p.gate.Admit(KeyOf(&c.Event), c.Event.TimestampMS); err != nil {
			for _, m := range c.Members {
				outcomes[m].Decision = DecisionDuplicateWithinWindow
			}
			continue
		}
		outcomes[c.Members[0]].Decision = DecisionAccepted
		for _, m := range c.Members[1:] {
			outcomes[m].Decision = DecisionFused
		}
		accepted = append(accepted, c)
	}
	return Result{Outcomes: outcomes, Accepted: accepted}
}

// Release withdraws the window anchors of candidates that did not reach the ledger.
func (p *Pipeline) Release(cands ...Candidate) {
	for i := range cands {
		p.gate.Release(KeyOf(&cands[i].Event), cands[i].Event.TimestampMS)
	}
}

// Forget releases the window state of a closed bout.
func (p *Pipeline) Forget(boutID string) {
	p.gate.Forget(boutID)
}
