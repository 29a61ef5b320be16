// Package broadcast fans live score updates out to per-bout subscribers.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// Update is one recomputed round card pushed to subscribers.
type Update struct {
	BoutID            string               `json:"bout_id"`
	Round             int                  `json:"round"`
	Card              model.RoundScoreCard `json:"card"`
	CVContribution    float64              `json:"cv_contribution"`
	JudgeContribution float64              `json:"judge_contribution"`
	ComputedMS        int64                `json:"computed_ms"`
}

// Subscription receives updates for one bout.
type Subscription struct {
	ID     string
	BoutID string

	ch   chan Update
	hub  *Hub
	once sync.Once
	err  error
}

// Updates is closed when the subscription ends.
func (s *Subscription) Updates() <-chan Update { return s.ch }

// Err reports why the subscription ended, nil while open or after a normal Close.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.detach(s, nil)
}

// Hub holds subscribers keyed by bout. Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[string]*Subscription
	count  int
	closed bool

	buffer int
	policy Policy
	logger logger.Logger
}

// NewHub creates a hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[string]map[string]*Subscription),
		buffer: defaultBuffer,
		policy: PolicyDropOldest,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber for bout.
func (h *Hub) Subscribe(bout string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	s := &Subscription{ID: uuid.NewString(), BoutID: bout, ch: make(chan Update, h.buffer), hub: h}
	set, ok := h.subs[bout]
	if !ok {
		set = make(map[string]*Subscription)
		h.subs[bout] = set
	}
	set[s.ID] = s
	h.count++
	metrics.UpdateSubscribers(h.count)
	return s, nil
}

// Publish delivers u to every subscriber of its bout.
func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.subs[u.BoutID] {
		select {
		case s.ch <- u:
			metrics.RecordBroadcastSent()
			continue
		default:
		}

		metrics.RecordBroadcastDropped(string(h.policy))
		if h.policy == PolicyDisconnect {
			h.logger.Warn(context.Background(), "disconnecting slow subscriber",
				logger.String("bout_id", u.BoutID), logger.String("subscription", s.ID))
			metrics.RecordBroadcastEvicted()
			h.detach(s, ErrSlowSubscriber)
			continue
		}

		// Only Publish sends, under h.mu, so one receive frees one slot.
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- u:
			metrics.RecordBroadcastSent()
		default:
		}
	}
}

// CloseBout ends every subscription for bout.
func (h *Hub) CloseBout(bout string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs[bout] {
		h.detach(s, nil)
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Close ends all subscriptions and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.subs {
		for _, s := range set {
			h.detach(s, nil)
		}
	}
}

// detach must be called with h.mu held.
func (h *Hub) detach(s *Subscription, reason error) {
	s.once.Do(func() {
		s.err = reason
		close(s.ch)
		set := h.subs[s.BoutID]
		delete(set, s.ID)
		if len(set) == 0 {
			delete(h.subs, s.BoutID)
		}
		h.count--
		metrics.UpdateSubscribers(h.count)
	})
}
