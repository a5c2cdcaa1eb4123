// Package scroll nudges a page downward on a fixed cadence so infinite
// feeds keep loading.
package scroll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scroller moves the viewport down by fraction of its height and reports
// the resulting vertical offset.
type Scroller interface {
	ScrollBy(ctx context.Context, fraction float64) (float64, error)
}

// Driver is a self-rescheduling scroll loop. Each tick checks whether the
// loop may continue before scrolling and scheduling its successor, so
// halting needs no timer handle: the next tick simply does nothing.
type Driver struct {
	scroller Scroller
	delay    time.Duration
	fraction float64
	gate     func() bool

	started atomic.Bool
	halted  atomic.Bool
	steps   atomic.Int64

	// mu serialises a tick's check-and-scroll against Halt.
	mu  sync.Mutex
	ctx context.Context
}

// NewDriver creates a Driver. gate, when non-nil, is consulted on every
// tick; the loop ends the first time it returns false.
func NewDriver(s Scroller, delay time.Duration, fraction float64, gate func() bool) *Driver {
	return &Driver{
		scroller: s,
		delay:    delay,
		fraction: fraction,
		gate:     gate,
	}
}

// Start runs the first tick immediately. Later calls are no-ops.
func (d *Driver) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	slog.Info("auto-scroll started", "delay", d.delay, "fraction", d.fraction)
	go d.tick()
}

// Halt ends the loop. When it returns no further scroll happens, including
// one that was in flight.
func (d *Driver) Halt() {
	if d.halted.CompareAndSwap(false, true) && d.started.Load() {
		slog.Info("auto-scroll stopped", "steps", d.steps.Load())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
}

// Scrolling reports whether the loop is started and may still advance.
func (d *Driver) Scrolling() bool {
	return d.started.Load() && !d.halted.Load() && (d.gate == nil || d.gate())
}

// Steps returns the number of completed scroll steps.
func (d *Driver) Steps() int64 {
	return d.steps.Load()
}

func (d *Driver) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.halted.Load() || d.ctx.Err() != nil {
		return
	}
	if d.gate != nil && !d.gate() {
		return
	}

	offset, err := d.scroller.ScrollBy(d.ctx, d.fraction)
	if err != nil {
		if d.ctx.Err() == nil {
			slog.Warn("scroll step failed, auto-scroll ends", "error", err)
		}
		d.halted.Store(true)
		return
	}
	d.steps.Add(1)
	slog.Debug("scrolled", "offset", offset, "step", d.steps.Load())

	time.AfterFunc(d.delay, d.tick)
}
