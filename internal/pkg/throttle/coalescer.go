// Package throttle coalesces bursts of map-centre updates.
package throttle

import (
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/pkg/geospatial"
)

// DefaultTick is one animation frame.
const DefaultTick = 16 * time.Millisecond

// MinMove is the smallest displacement, in metres, worth emitting.
const MinMove = 0.5

// Coalescer keeps only the latest point pushed within a tick and hands it to
// emit at most once per tick. Points closer than MinMove to the last emitted
// one are dropped.
type Coalescer struct {
	clock clock.Clock
	tick  time.Duration
	emit  func(domain.GeoPoint)

	mu      sync.Mutex
	pending *domain.GeoPoint
	last    *domain.GeoPoint
	timer   clock.Timer
	closed  bool
}

// New creates a Coalescer. A zero tick uses DefaultTick.
func New(clk clock.Clock, tick time.Duration, emit func(domain.GeoPoint)) *Coalescer {
	if clk == nil {
		clk = clock.WallClock
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Coalescer{clock: clk, tick: tick, emit: emit}
}

// Push records p as the latest position.
func (c *Coalescer) Push(p domain.GeoPoint) {
	if !p.Finite() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = &p
	if c.timer == nil {
		c.timer = c.clock.AfterFunc(c.tick, c.flush)
	}
}

func (c *Coalescer) flush() {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.timer = nil
	if p == nil || c.closed {
		c.mu.Unlock()
		return
	}
	if c.last != nil && geospatial.Distance(*c.last, *p) < MinMove {
		c.mu.Unlock()
		return
	}
	c.last = p
	c.mu.Unlock()

	c.emit(*p)
}

// Close stops the pending timer; later pushes are ignored.
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
