package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClockSequence(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWallClock(genesis, 5*time.Second)

	c.now = func() time.Time { return genesis.Add(-time.Minute) }
	assert.Equal(t, uint32(0), c.Sequence())

	c.now = func() time.Time { return genesis.Add(12 * time.Second) }
	assert.Equal(t, uint32(2), c.Sequence())

	assert.Equal(t, 50*time.Second, c.Duration(10))
}

func TestManualClockAdvance(t *testing.T) {
	c := NewManualClock(10)
	assert.Equal(t, uint32(10), c.Sequence())
	assert.Equal(t, uint32(25), c.Advance(15))
	assert.Equal(t, uint32(25), c.Sequence())
}

func TestWallClockDeadline(t *testing.T) {
	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWallClock(genesis, 5*time.Second)
	assert.Equal(t, genesis.Add(15*time.Second), c.Deadline(2))
}
