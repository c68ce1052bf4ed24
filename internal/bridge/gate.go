package bridge

import (
	"context"
	"sync"
)

// State is the readiness of the host bridge.
type State int

const (
	NotReady State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "not_ready"
}

// Gate is a one-shot readiness signal. Waiters registered before or after
// Open are all released, and Open takes effect exactly once. The zero value
// is a NotReady gate.
type Gate struct {
	initOnce sync.Once
	openOnce sync.Once
	done     chan struct{}
}

// NewGate returns a gate in the NotReady state.
func NewGate() *Gate {
	return &Gate{}
}

func (g *Gate) ch() chan struct{} {
	g.initOnce.Do(func() { g.done = make(chan struct{}) })
	return g.done
}

// Open moves the gate to Ready. Later calls are no-ops.
func (g *Gate) Open() {
	done := g.ch()
	g.openOnce.Do(func() { close(done) })
}

// Wait blocks until the gate is Ready or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	done := g.ch()
	select {
	case <-done:
		return nil
	default:
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the gate opens.
func (g *Gate) Done() <-chan struct{} {
	return g.ch()
}

// State reports the current state.
func (g *Gate) State() State {
	select {
	case <-g.ch():
		return Ready
	default:
		return NotReady
	}
}
