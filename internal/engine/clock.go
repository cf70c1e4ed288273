package engine

import (
	"sync/atomic"
	"time"
)

// progressClock numbers top-level Normalizer calls and decides when a
// progress line is due.
//
// The sequence is a logical clock: every top-level call gets a strictly
// increasing number, independent of wall time. The interval only gates
// logging.
type progressClock struct {
	seq      atomic.Int64
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// newProgressClock creates a clock logging every interval. A zero interval
// never reports due.
func newProgressClock(interval time.Duration) *progressClock {
	c := &progressClock{interval: interval, now: time.Now}
	c.last = c.now()
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *progressClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *progressClock) Current() int64 {
	return c.seq.Load()
}

// Due reports whether a progress line should be logged now, and restarts
// the interval when it does.
func (c *progressClock) Due() bool {
	if c.interval <= 0 {
		return false
	}
	now := c.now()
	if now.Sub(c.last) < c.interval {
		return false
	}
	c.last = now
	return true
}
