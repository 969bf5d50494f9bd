package concurrency

import (
	"errors"
	"sync"
)

var ErrBusy = errors.New("a transfer is already in progress")

// ConcurrencyGuard lets at most one task run at a time. A second caller is
// turned away with ErrBusy instead of queueing.
type ConcurrencyGuard struct {
	mu     sync.Mutex
	isBusy bool
}

func NewConcurrencyGuard() *ConcurrencyGuard {
	return &ConcurrencyGuard{}
}

// Acquire marks the guard busy and returns the func that frees it again.
// Calling release more than once is harmless.
func (g *ConcurrencyGuard) Acquire() (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isBusy {
		return nil, ErrBusy
	}
	g.isBusy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.isBusy = false
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether a task is currently running.
func (g *ConcurrencyGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isBusy
}
