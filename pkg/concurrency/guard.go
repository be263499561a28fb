// Package concurrency serializes access to resources that admit a single
// user at a time, such as the half-duplex serial link.
package concurrency

import (
	"errors"
	"sync"
)

// ErrBusy means a task already holds the guard. Callers fail fast instead
// of queueing behind the link.
var ErrBusy = errors.New("transfer already in flight")

// Guard admits one task at a time without queueing.
type Guard struct {
	mu   sync.Mutex
	busy bool
}

// NewGuard returns an idle guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Execute runs task if the guard is idle, holding it for the duration.
// A second caller gets ErrBusy immediately.
func (g *Guard) Execute(task func() error) error {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return ErrBusy
	}
	g.busy = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()
	return task()
}
