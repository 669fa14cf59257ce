package pipeline

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// InFlight counts segment workers that were launched and have not finished.
// Before the first launch the count is uninitialized, which callers must read as
// "not done yet" rather than zero.
type InFlight struct {
	n       atomic.Int64
	started atomic.Bool
}

func (c *InFlight) Inc() {
	c.n.Add(1)
	c.started.Store(true)
}

// Dec never takes the count below zero.
func (c *InFlight) Dec() {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			log.Warn().Str("op", "pipeline/inflight").Msg("decrement with no worker in flight")
			return
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Load returns the current count and whether any worker was ever launched.
func (c *InFlight) Load() (int64, bool) {
	return c.n.Load(), c.started.Load()
}

// Idle reports a started run with nothing left in flight.
func (c *InFlight) Idle() bool {
	n, started := c.Load()
	return started && n == 0
}
