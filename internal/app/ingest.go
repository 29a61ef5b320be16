package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ringside/internal/adapters/mq/queue"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/audit"
	"github.com/okian/ringside/internal/domain/detection"
	"github.com/okian/ringside/internal/domain/hybrid"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// SubmitResult reports the ledger outcome of one event. Duplicates are accepted.
type SubmitResult struct {
	Accepted      bool                   `json:"accepted"`
	IsDuplicate   bool                   `json:"is_duplicate"`
	SequenceIndex int64                  `json:"sequence_index"`
	EventHash     string                 `json:"event_hash"`
	ChainHash     string                 `json:"chain_hash"`
	Normalized    *model.NormalizedEvent `json:"normalized,omitempty"`
}

type eventAcceptedPayload struct {
	Round         int             `json:"round"`
	SequenceIndex int64           `json:"sequence_index"`
	EventHash     string          `json:"event_hash"`
	ChainHash     string          `json:"chain_hash"`
	EventType     model.EventType `json:"event_type"`
	Corner        model.Corner    `json:"corner"`
	Source        model.Source    `json:"source"`
	DeviceID      string          `json:"device_id"`
}

// SubmitEvent records a judge entry or detector event once and schedules a live rescore.
func (s *Service) SubmitEvent(ctx context.Context, e model.CombatEvent) (res SubmitResult, err error) {
	ctx, span := startSpan(ctx, "SubmitEvent", boutAttrs(e.BoutID, e.Round)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return SubmitResult{}, err
	}
	if err := e.Validate(); err != nil {
		metrics.RecordEventRejected("validation")
		return SubmitResult{}, err
	}

	_, release, err := s.enter(ctx, c, e.BoutID)
	if err != nil {
		return SubmitResult{}, err
	}
	defer release()

	return s.accept(ctx, c, e)
}

// accept runs an event through the ledger. Callers hold the bout open.
func (s *Service) accept(ctx context.Context, c *components, e model.CombatEvent) (SubmitResult, error) {
	start := time.Now()
	r, err := c.ledger.Submit(ctx, e)
	metrics.RecordLedgerLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("ledger", "submit")
		return SubmitResult{}, err
	}

	res := SubmitResult{
		Accepted:      true,
		IsDuplicate:   r.IsDuplicate,
		SequenceIndex: r.Entry.SequenceIndex,
		EventHash:     r.Entry.EventHash,
		ChainHash:     r.Entry.ChainHash,
	}
	if r.IsDuplicate {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate submission",
			logger.String("bout_id", e.BoutID),
			logger.Int("round", e.Round),
			logger.Int64("sequence_index", r.Entry.SequenceIndex),
		)
		return res, nil
	}
	metrics.RecordEventAccepted(string(e.Source))

	if n, err := s.normalized(ctx, c, e, r.Entry.EventHash); err != nil {
		s.logger.Warn(ctx, "normalized view unavailable",
			logger.String("bout_id", e.BoutID),
			logger.String("event_hash", r.Entry.EventHash),
			logger.Error(err),
		)
	} else {
		res.Normalized = n
	}

	// The ledger has committed; an audit failure is reported but does not undo acceptance.
	if _, err := c.chain.AppendJSON(ctx, e.BoutID, audit.EventAccepted, eventAcceptedPayload{
		Round:         e.Round,
		SequenceIndex: r.Entry.SequenceIndex,
		EventHash:     r.Entry.EventHash,
		ChainHash:     r.Entry.ChainHash,
		EventType:     e.EventType,
		Corner:        e.Corner,
		Source:        e.Source,
		DeviceID:      e.DeviceID,
	}, e.ActorID); err != nil {
		metrics.RecordErrorByComponent("audit", "append")
		s.logger.Error(ctx, "audit append after ledger commit failed",
			logger.String("bout_id", e.BoutID),
			logger.String("event_hash", r.Entry.EventHash),
			logger.Error(err),
		)
	} else {
		metrics.RecordAuditEntry(audit.EventAccepted)
	}

	s.scheduleRescore(ctx, c, e.BoutID, e.Round)
	return res, nil
}

// normalized weighs e the way the round card does: inside its own stream, in card order.
func (s *Service) normalized(ctx context.Context, c *components, e model.CombatEvent, hash string) (*model.NormalizedEvent, error) {
	events, err := c.ledger.Events(ctx, e.BoutID, e.Round)
	if err != nil {
		return nil, err
	}
	cv, judge := hybrid.Split(events)
	stream := judge
	if e.Source == model.SourceAutomated {
		stream = cv
	}
	t, err := c.engine.Tally(ctx, stream)
	if err != nil {
		return nil, err
	}
	for i := range t.Normalized {
		if t.Normalized[i].SourceEvent.Hash() == hash {
			n := t.Normalized[i]
			return &n, nil
		}
	}
	return nil, fmt.Errorf("%w: event %s", repository.ErrNotFound, hash)
}

func (s *Service) scheduleRescore(ctx context.Context, c *components, boutID string, round int) {
	if !c.queue.Enqueue(ctx, model.RescoreRequest{BoutID: boutID, Round: round}) {
		s.logger.Debug(ctx, "live rescore skipped",
			logger.String("bout_id", boutID),
			logger.Int("round", round),
			logger.Error(queue.ErrQueueFull),
		)
	}
}

// DetectionOutcome is the fate of one input detection.
type DetectionOutcome struct {
	Index    int                `json:"index"`
	Decision detection.Decision `json:"decision"`
	Vendors  []string           `json:"vendors,omitempty"`
	Submit   *SubmitResult      `json:"submit,omitempty"`
}

// DetectionResult reports a detection batch.
type DetectionResult struct {
	Outcomes []DetectionOutcome `json:"outcomes"`
	Accepted int                `json:"accepted"`
	Fused    int                `json:"fused"`
	Rejected int                `json:"rejected"`
}

type detectionsFusedPayload struct {
	Round      int             `json:"round"`
	EventHash  string          `json:"event_hash"`
	EventType  model.EventType `json:"event_type"`
	Corner     model.Corner    `json:"corner"`
	Vendors    []string        `json:"vendors"`
	Members    int             `json:"members"`
	Confidence float64         `json:"confidence"`
}

// SubmitDetections filters, fuses and gates a batch of raw detections, then submits the survivors.
// Low-confidence and in-window duplicates are decisions, not errors.
func (s *Service) SubmitDetections(ctx context.Context, batch []model.CombatEvent) (res DetectionResult, err error) {
	ctx, span := startSpan(ctx, "SubmitDetections")
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return DetectionResult{}, err
	}
	if len(batch) == 0 {
		return DetectionResult{}, ErrEmptyBatch
	}

	events := make([]model.CombatEvent, len(batch))
	copy(events, batch)
	for i := range events {
		if events[i].Source == "" {
			events[i].Source = model.SourceAutomated
		}
		if err := events[i].Validate(); err != nil {
			metrics.RecordEventRejected("validation")
			return DetectionResult{}, fmt.Errorf("detection %d: %w", i, err)
		}
		b, err := s.bout(ctx, c, events[i].BoutID)
		if err != nil {
			return DetectionResult{}, err
		}
		b.mu.RLock()
		closed := b.closed
		b.mu.RUnlock()
		if closed {
			return DetectionResult{}, fmt.Errorf("%w: %s", ErrBoutClosed, events[i].BoutID)
		}
	}

	processed := c.pipeline.Process(events)
	res.Outcomes = make([]DetectionOutcome, len(processed.Outcomes))
	for i, o := range processed.Outcomes {
		res.Outcomes[i] = DetectionOutcome{Index: o.Index, Decision: o.Decision}
	}

	for i, cand := range processed.Accepted {
		sub, err := s.submitCandidate(ctx, c, cand)
		if err != nil {
			c.pipeline.Release(processed.Accepted[i:]...)
			return res, err
		}
		lead := &res.Outcomes[cand.Members[0]]
		lead.Submit = &sub
		lead.Vendors = cand.Vendors
	}

	for _, o := range res.Outcomes {
		metrics.RecordDetection(string(o.Decision))
		switch o.Decision {
		case detection.DecisionAccepted:
			res.Accepted++
		case detection.DecisionFused:
			res.Fused++
		default:
			res.Rejected++
		}
	}
	span.SetAttributes(boutAttrs(events[0].BoutID, events[0].Round)...)
	return res, nil
}

func (s *Service) submitCandidate(ctx context.Context, c *components, cand detection.Candidate) (SubmitResult, error) {
	_, release, err := s.enter(ctx, c, cand.Event.BoutID)
	if err != nil {
		return SubmitResult{}, err
	}
	defer release()

	sub, err := s.accept(ctx, c, cand.Event)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(cand.Members) > 1 && !sub.IsDuplicate {
		if _, err := c.chain.AppendJSON(ctx, cand.Event.BoutID, audit.DetectionsFused, detectionsFusedPayload{
			Round:      cand.Event.Round,
			EventHash:  sub.EventHash,
			EventType:  cand.Event.EventType,
			Corner:     cand.Event.Corner,
			Vendors:    cand.Vendors,
			Members:    len(cand.Members),
			Confidence: cand.Event.Confidence,
		}, cand.Event.ActorID); err != nil {
			metrics.RecordErrorByComponent("audit", "append")
			s.logger.Error(ctx, "audit of fused detection failed",
				logger.String("bout_id", cand.Event.BoutID), logger.Error(err))
		} else {
			metrics.RecordAuditEntry(audit.DetectionsFused)
		}
	}
	return sub, nil
}
