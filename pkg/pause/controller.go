// Package pause holds the process-wide pause flag shared between the control
// surface and the worker loop.
package pause

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Controller is the single source of truth for the paused/running state.
// Reads and writes are atomic; callers must not cache the result across a
// blocking call.
type Controller struct {
	paused atomic.Bool

	mu      sync.Mutex
	changed chan struct{}
}

func NewController() *Controller {
	return &Controller{changed: make(chan struct{})}
}

func (c *Controller) IsPaused() bool {
	return c.paused.Load()
}

// Set stores the flag and wakes everyone waiting on Changed. Setting the
// current value is a no-op.
func (c *Controller) Set(paused bool) {
	if c.paused.Swap(paused) == paused {
		return
	}
	c.broadcast()
}

// Toggle flips the flag and returns the new value.
func (c *Controller) Toggle() bool {
	for {
		old := c.paused.Load()
		if c.paused.CompareAndSwap(old, !old) {
			c.broadcast()
			return !old
		}
	}
}

// Changed returns a channel that is closed on the next state transition.
func (c *Controller) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

func (c *Controller) broadcast() {
	c.mu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

// WhileRunning derives a context that is cancelled as soon as the controller
// is paused. It is used to abandon blocking input acquisition mid-call.
func (c *Controller) WhileRunning(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if c.IsPaused() {
		cancel()
		return ctx, cancel
	}
	go func() {
		for {
			ch := c.Changed()
			if c.IsPaused() {
				cancel()
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return ctx, cancel
}

// DefaultPollInterval is the pause re-check interval used when none is set.
const DefaultPollInterval = 500 * time.Millisecond

// Backoff sleeps between pause re-checks, doubling from min up to max.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	cur time.Duration
}

// Wait blocks for the current interval, or until the controller changes
// state or ctx is done. It returns ctx.Err() when the context ends.
func (b *Backoff) Wait(ctx context.Context, c *Controller) error {
	if b.Min <= 0 {
		b.Min = DefaultPollInterval
	}
	if b.cur < b.Min {
		b.cur = b.Min
	}
	ch := c.Changed()
	t := time.NewTimer(b.cur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
	case <-t.C:
	}

	b.cur *= 2
	if b.Max > 0 && b.cur > b.Max {
		b.cur = b.Max
	}
	return nil
}

// Reset returns the backoff to its minimum interval.
func (b *Backoff) Reset() {
	b.cur = b.Min
}
