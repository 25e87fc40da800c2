package ledger

import (
	"sync/atomic"
	"time"
)

// Clock supplies the current ledger sequence used to evaluate expirations.
// It must never go backwards.
type Clock interface {
	Sequence() uint32
}

// WallClock derives the sequence from wall time: one ledger per Interval
// since Genesis.
type WallClock struct {
	Genesis  time.Time
	Interval time.Duration
	now      func() time.Time
}

func NewWallClock(genesis time.Time, interval time.Duration) *WallClock {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WallClock{Genesis: genesis, Interval: interval, now: time.Now}
}

func (c *WallClock) Sequence() uint32 {
	d := c.now().Sub(c.Genesis)
	if d < 0 {
		return 0
	}
	n := int64(d / c.Interval)
	if n > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// Duration converts a number of ledgers into wall time.
func (c *WallClock) Duration(ledgers uint32) time.Duration {
	return time.Duration(ledgers) * c.Interval
}

// ManualClock is advanced explicitly. Used by tests and tools.
type ManualClock struct {
	seq atomic.Uint32
}

func NewManualClock(start uint32) *ManualClock {
	c := &ManualClock{}
	c.seq.Store(start)
	return c
}

func (c *ManualClock) Sequence() uint32 { return c.seq.Load() }

// Advance moves the clock forward by n ledgers and returns the new sequence.
func (c *ManualClock) Advance(n uint32) uint32 { return c.seq.Add(n) }

// Deadline is the wall time at which a ledger ends, i.e. when an entry
// live until that ledger may be evicted.
func (c *WallClock) Deadline(ledger uint32) time.Time {
	return c.Genesis.Add(time.Duration(uint64(ledger)+1) * c.Interval)
}
