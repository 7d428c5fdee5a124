package engine

import "sync/atomic"

// Clock is a monotonic logical clock for notification ordering.
//
// Every notification published on a Bus is stamped with a strictly increasing
// seq from this clock, so subscribers and golden traces see a stable order
// independent of wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
