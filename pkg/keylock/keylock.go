// Package keylock provides a mutex per string key. Idle keys are released.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Arena hands out one lock per key. The zero value is ready to use.
type Arena struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty arena.
func New() *Arena {
	return &Arena{locks: make(map[string]*entry)}
}

// Lock blocks until key is held and returns the function that releases it.
func (a *Arena) Lock(key string) func() {
	a.mu.Lock()
	if a.locks == nil {
		a.locks = make(map[string]*entry)
	}
	e, ok := a.locks[key]
	if !ok {
		e = &entry{}
		a.locks[key] = e
	}
	e.refs++
	a.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		a.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(a.locks, key)
		}
		a.mu.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
