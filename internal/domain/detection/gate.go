// Package detection filters raw detections and fuses multi-camera views of the same action.
package detection

import (
	"sort"
	"sync"

	"github.com/okian/ringside/internal/domain/model"
)

// Key groups detections that describe the same kind of action.
type Key struct {
	BoutID    string
	Round     int
	Corner    model.Corner
	EventType model.EventType
}

// KeyOf returns the window key of e.
func KeyOf(e *model.CombatEvent) Key {
	return Key{BoutID: e.BoutID, Round: e.Round, Corner: e.Corner, EventType: e.EventType}
}

// Gate keeps the accepted timestamps of every key and rejects detections that land inside
// the window of an earlier accepted one.
type Gate struct {
	mu       sync.Mutex
	window   int64
	accepted map[Key][]int64 // sorted
}

// NewGate creates a gate with the given window in milliseconds.
func NewGate(windowMS int64) *Gate {
	return &Gate{window: windowMS, accepted: make(map[Key][]int64)}
}

// Admit records ts for k unless an accepted timestamp lies within the window.
// Rejected detections never move the anchors.
func (g *Gate) Admit(k Key, ts int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	times := g.accepted[k]
	i := sort.Search(len(times), func(i int) bool { return times[i] >= ts })
	if i < len(times) && times[i]-ts < g.window {
		return ErrDuplicateWithinWindow
	}
	if i > 0 && ts-times[i-1] < g.window {
		return ErrDuplicateWithinWindow
	}

	times = append(times, 0)
	copy(times[i+1:], times[i:])
	times[i] = ts
	g.accepted[k] = times
	return nil
}

// Release removes the anchor ts of k. Used when an admitted detection was never stored.
func (g *Gate) Release(k Key, ts int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	times := g.accepted[k]
	i := sort.Search(len(times), func(i int) bool { return times[i] >= ts })
	if i == len(times) || times[i] != ts {
		return
	}
	times = append(times[:i], times[i+1:]...)
	if len(times) == 0 {
		delete(g.accepted, k)
		return
	}
	g.accepted[k] = times
}

// Forget drops every key that belongs to bout.
func (g *Gate) Forget(boutID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.accepted {
		if k.BoutID == boutID {
			delete(g.accepted, k)
		}
	}
}

// Len returns the number of tracked keys.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.accepted)
}
