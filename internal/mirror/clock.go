package mirror

import "sync/atomic"

// Clock stamps propagations with strictly increasing sequence numbers so a
// trace has a deterministic order independent of wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. The first Next returns start+1.
// Used to continue a persisted trace.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
