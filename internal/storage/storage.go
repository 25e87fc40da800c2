// Package storage defines the tiered key-value contract the token ledger is
// built on, and a buffered transaction over it.
//
// Three tiers exist. Instance entries share one lifetime tracked by a
// bookkeeping entry. Persistent entries have their lifetime refreshed by the
// application on access; one that lapses is archived and restored on its next
// access. Temporary entries get a fixed TTL at write time and may be evicted by
// the store once it elapses.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
)

type Tier uint8

const (
	TierInstance Tier = iota
	TierPersistent
	TierTemporary
)

func (t Tier) String() string {
	switch t {
	case TierInstance:
		return "instance"
	case TierPersistent:
		return "persistent"
	case TierTemporary:
		return "temporary"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// InstanceKey holds the lifetime shared by all instance entries.
const InstanceKey = "__instance"

// NoExpiry is the LiveUntil of instance entries.
const NoExpiry = math.MaxUint32

var (
	ErrMissingEntry = errors.New("storage: entry does not exist")
	ErrTxClosed     = errors.New("storage: transaction already finished")
	ErrRollback     = errors.New("storage: rollback of a partial commit failed")
)

// Entry is a stored value and the last ledger at which it is live.
type Entry struct {
	Value     []byte
	LiveUntil uint32
}

// Live reports whether the entry is still live at ledger seq.
func (e Entry) Live(seq uint32) bool { return e.LiveUntil >= seq }

// Change is one buffered mutation handed to Backend.Commit.
type Change struct {
	Tier    Tier
	Key     string
	Entry   Entry
	Deleted bool
}

// Backend is the durable store. Load may return entries whose lifetime has
// elapsed; callers decide liveness. Commit must apply all changes or none.
//
// Only temporary entries may be dropped once their lifetime ends. A lapsed
// instance or persistent entry must be kept so it can be restored.
type Backend interface {
	Load(ctx context.Context, tier Tier, key string) (Entry, bool, error)
	Commit(ctx context.Context, changes []Change) error
}

// Lifetimes are the minimal TTLs, in ledgers, given to newly created entries.
type Lifetimes struct {
	MinPersistentTTL uint32
	MinTemporaryTTL  uint32
}

func DefaultLifetimes() Lifetimes {
	return Lifetimes{MinPersistentTTL: 4095, MinTemporaryTTL: 15}
}

func addLedgers(seq, n uint32) uint32 {
	if n > NoExpiry-seq {
		return NoExpiry - 1
	}
	return seq + n
}
