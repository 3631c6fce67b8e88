package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInterrupted is returned by Wait when its context ends before a
	// signal arrives. The caller received nothing.
	ErrInterrupted = errors.New("gate: wait interrupted")
	// ErrClosed is returned by Wait once the gate has been closed.
	ErrClosed = errors.New("gate: closed")
)

// episode is a single wait/signal cycle. Waiters park on done; the
// episode ends when done is closed by Signal or Close.
type episode struct {
	done     chan struct{}
	shutdown bool // set under Gate.mu before done is closed
}

func newEpisode() *episode {
	return &episode{done: make(chan struct{})}
}

// Gate is a re-armable broadcast wait/signal primitive. The zero value is
// not usable; create gates with New.
type Gate struct {
	mu      sync.Mutex
	cur     *episode
	waiters int
	gen     uint64
	closed  bool
}

// New returns an unsignaled gate.
func New() *Gate {
	return &Gate{cur: newEpisode()}
}

// Wait blocks until the next Signal, the gate is closed, or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	ep := g.cur
	g.waiters++
	g.mu.Unlock()

	select {
	case <-ep.done:
		return ep.result()
	case <-ctx.Done():
	}

	g.mu.Lock()
	if g.cur == ep && !g.closed {
		g.waiters--
		g.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
	g.mu.Unlock()

	// The episode ended while we were being cancelled and we were counted
	// as released, so report its outcome.
	return ep.result()
}

func (ep *episode) result() error {
	if ep.shutdown {
		return ErrClosed
	}
	return nil
}

// Signal releases every goroutine currently parked in Wait and re-arms the
// gate. It never blocks and returns the number of waiters released.
// Signal on a closed gate does nothing.
func (g *Gate) Signal() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0
	}
	return g.endEpisode(false)
}

// Close releases all parked waiters with ErrClosed and makes every later
// Wait fail. It returns the number of waiters released. Calling Close more
// than once is harmless.
func (g *Gate) Close() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0
	}
	g.closed = true
	return g.endEpisode(true)
}

// endEpisode must be called with g.mu held.
func (g *Gate) endEpisode(shutdown bool) int {
	released := g.waiters
	g.cur.shutdown = shutdown
	close(g.cur.done)

	g.waiters = 0
	if !shutdown {
		g.gen++
		g.cur = newEpisode()
	}
	return released
}

// Waiters returns the number of goroutines parked in Wait.
func (g *Gate) Waiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters
}

// Generation returns how many signal episodes have completed.
func (g *Gate) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
