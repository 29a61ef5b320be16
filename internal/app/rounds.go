package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/domain/audit"
	"github.com/okian/ringside/internal/domain/hybrid"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

type roundOpenedPayload struct {
	Round int `json:"round"`
}

// OpenRound marks a round open, clears any earlier card and audits the open.
func (s *Service) OpenRound(ctx context.Context, boutID string, round int) (entry model.AuditEntry, err error) {
	ctx, span := startSpan(ctx, "OpenRound", boutAttrs(boutID, round)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return model.AuditEntry{}, err
	}
	if err := requireRound(boutID, round); err != nil {
		return model.AuditEntry{}, err
	}
	b, release, err := s.enter(ctx, c, boutID)
	if err != nil {
		return model.AuditEntry{}, err
	}
	defer release()

	rs := b.round(round)
	rs.mu.Lock()
	rs.opened = true
	rs.card = nil
	rs.mu.Unlock()

	entry, err = c.chain.AppendJSON(ctx, boutID, audit.RoundOpened, roundOpenedPayload{Round: round}, SystemActor)
	if err != nil {
		return model.AuditEntry{}, err
	}
	metrics.RecordAuditEntry(audit.RoundOpened)
	s.logger.Info(ctx, "round opened", logger.String("bout_id", boutID), logger.Int("round", round))
	return entry, nil
}

// ComputeRoundScore scores a round from its ledger. It is a pure read and may run concurrently.
func (s *Service) ComputeRoundScore(ctx context.Context, boutID string, round int) (res hybrid.Result, err error) {
	ctx, span := startSpan(ctx, "ComputeRoundScore", boutAttrs(boutID, round)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return hybrid.Result{}, err
	}
	if err := requireRound(boutID, round); err != nil {
		return hybrid.Result{}, err
	}
	entries, err := c.ledger.Entries(ctx, boutID, round)
	if err != nil {
		return hybrid.Result{}, err
	}
	if len(entries) == 0 && !s.opened(boutID, round) {
		return hybrid.Result{}, fmt.Errorf("%w: %s/%d", ErrRoundNotFound, boutID, round)
	}
	return s.score(ctx, c, boutID, round, entries, "request")
}

func (s *Service) opened(boutID string, round int) bool {
	b, ok := s.peekBout(boutID)
	if !ok {
		return false
	}
	rs, ok := b.peek(round)
	if !ok {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.opened
}

func (s *Service) score(ctx context.Context, c *components, boutID string, round int, entries []model.LedgerEntry, trigger string) (hybrid.Result, error) {
	start := time.Now()
	res, err := c.fuser.Fuse(ctx, boutID, round, eventsOf(entries))
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScoringError()
		return hybrid.Result{}, err
	}
	metrics.RecordScoreComputation(trigger)
	return res, nil
}

// FinalizeResult is the official card and the audit entry that records it.
type FinalizeResult struct {
	hybrid.Result
	Entry model.AuditEntry `json:"entry"`
}

type roundScoredPayload struct {
	Round             int                  `json:"round"`
	Card              model.RoundScoreCard `json:"card"`
	CVContribution    float64              `json:"cv_contribution"`
	JudgeContribution float64              `json:"judge_contribution"`
	LedgerEntries     int                  `json:"ledger_entries"`
	LedgerChainHash   string               `json:"ledger_chain_hash,omitempty"`
	Actor             string               `json:"actor"`
}

// FinalizeRound computes the official card and records it in the audit chain.
// Finalizing again records a new card; the latest one is archived.
func (s *Service) FinalizeRound(ctx context.Context, boutID string, round int, actor string) (res FinalizeResult, err error) {
	ctx, span := startSpan(ctx, "FinalizeRound", boutAttrs(boutID, round)...)
	defer func() { endSpan(span, err) }()

	c, err := s.components()
	if err != nil {
		return FinalizeResult{}, err
	}
	if err := requireRound(boutID, round); err != nil {
		return FinalizeResult{}, err
	}
	if actor == "" {
		return FinalizeResult{}, &model.ValidationError{Field: "actor", Reason: "missing"}
	}
	b, release, err := s.enter(ctx, c, boutID)
	if err != nil {
		return FinalizeResult{}, err
	}
	defer release()

	entries, err := c.ledger.Entries(ctx, boutID, round)
	if err != nil {
		return FinalizeResult{}, err
	}
	if len(entries) == 0 && !s.opened(boutID, round) {
		return FinalizeResult{}, fmt.Errorf("%w: %s/%d", ErrRoundNotFound, boutID, round)
	}
	scored, err := s.score(ctx, c, boutID, round, entries, "finalize")
	if err != nil {
		return FinalizeResult{}, err
	}

	payload := roundScoredPayload{
		Round:             round,
		Card:              scored.Card,
		CVContribution:    scored.CVContribution,
		JudgeContribution: scored.JudgeContribution,
		LedgerEntries:     len(entries),
		Actor:             actor,
	}
	if len(entries) > 0 {
		payload.LedgerChainHash = entries[len(entries)-1].ChainHash
	}
	entry, err := c.chain.AppendJSON(ctx, boutID, audit.RoundScored, payload, actor)
	if err != nil {
		return FinalizeResult{}, err
	}
	metrics.RecordAuditEntry(audit.RoundScored)

	rs := b.round(round)
	rs.mu.Lock()
	rs.card = &scored
	rs.mu.Unlock()

	c.hub.Publish(update(boutID, round, &scored, s.now()))
	s.logger.Info(ctx, "round finalized",
		logger.String("bout_id", boutID),
		logger.Int("round", round),
		logger.String("score", scored.Card.ScoreString),
		logger.String("winner", string(scored.Card.Winner)),
		logger.String("override", scored.Card.Override),
	)
	return FinalizeResult{Result: scored, Entry: entry}, nil
}

// rescore is the worker handler: recompute a round and push it to live subscribers.
func (s *Service) rescore(ctx context.Context, c *components, req model.RescoreRequest) error {
	entries, err := c.ledger.Entries(ctx, req.BoutID, req.Round)
	if err != nil {
		return err
	}
	res, err := s.score(ctx, c, req.BoutID, req.Round, entries, "rescore")
	if err != nil {
		return err
	}
	c.hub.Publish(update(req.BoutID, req.Round, &res, s.now()))
	return nil
}

func update(boutID string, round int, res *hybrid.Result, at time.Time) broadcast.Update {
	return broadcast.Update{
		BoutID:            boutID,
		Round:             round,
		Card:              res.Card,
		CVContribution:    res.CVContribution,
		JudgeContribution: res.JudgeContribution,
		ComputedMS:        at.UnixMilli(),
	}
}
