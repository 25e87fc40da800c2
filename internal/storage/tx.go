package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

type tierKey struct {
	tier Tier
	key  string
}

type pending struct {
	entry   Entry
	deleted bool
}

// Tx buffers reads and writes of a single invocation. Nothing reaches the
// backend until Commit; dropping a Tx discards every mutation.
type Tx struct {
	ctx     context.Context
	backend Backend
	seq     uint32
	lt      Lifetimes

	writes map[tierKey]*pending
	order  []tierKey
	done   bool
}

// Begin opens a transaction evaluated at ledger seq.
func Begin(ctx context.Context, b Backend, seq uint32, lt Lifetimes) *Tx {
	return &Tx{
		ctx:     ctx,
		backend: b,
		seq:     seq,
		lt:      lt,
		writes:  make(map[tierKey]*pending),
	}
}

// Sequence is the ledger the transaction is evaluated at.
func (tx *Tx) Sequence() uint32 { return tx.seq }

func (tx *Tx) Instance() Instance     { return instanceView{view{tx, TierInstance}} }
func (tx *Tx) Persistent() Persistent { return persistentView{view{tx, TierPersistent}} }
func (tx *Tx) Temporary() Temporary   { return temporaryView{view{tx, TierTemporary}} }

// Changes returns the buffered mutations in first-touch order.
func (tx *Tx) Changes() []Change {
	out := make([]Change, 0, len(tx.order))
	for _, k := range tx.order {
		p := tx.writes[k]
		out = append(out, Change{Tier: k.tier, Key: k.key, Entry: p.entry, Deleted: p.deleted})
	}
	return out
}

// Commit hands all buffered mutations to the backend in one batch.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxClosed
	}
	tx.done = true
	if err := tx.ctx.Err(); err != nil {
		return err
	}
	changes := tx.Changes()
	if len(changes) == 0 {
		return nil
	}
	if err := tx.backend.Commit(tx.ctx, changes); err != nil {
		return fmt.Errorf("storage commit: %w", err)
	}
	return nil
}

// Discard drops all buffered mutations.
func (tx *Tx) Discard() {
	tx.done = true
	tx.writes = nil
	tx.order = nil
}

func (tx *Tx) load(tier Tier, key string) (Entry, bool, error) {
	if tx.done {
		return Entry{}, false, ErrTxClosed
	}
	if p, ok := tx.writes[tierKey{tier, key}]; ok {
		if p.deleted {
			return Entry{}, false, nil
		}
		return p.entry, true, nil
	}
	e, ok, err := tx.backend.Load(tx.ctx, tier, key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("storage load %s/%s: %w", tier, key, err)
	}
	if !ok {
		return Entry{}, false, nil
	}
	if !e.Live(tx.seq) {
		if tier == TierTemporary {
			return Entry{}, false, nil
		}
		// Long-lived entries are archived, not lost, when their lifetime
		// lapses. Touching one restores it with a fresh minimal lifetime.
		e.LiveUntil = addLedgers(tx.seq, tx.lt.MinPersistentTTL)
		tx.stage(tier, key, &pending{entry: e})
	}
	return e, true, nil
}

func (tx *Tx) stage(tier Tier, key string, p *pending) {
	k := tierKey{tier, key}
	if _, ok := tx.writes[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = p
}

func (tx *Tx) put(tier Tier, key string, value []byte) error {
	cur, ok, err := tx.load(tier, key)
	if err != nil {
		return err
	}
	liveUntil := cur.LiveUntil
	if !ok {
		switch tier {
		case TierInstance:
			liveUntil = NoExpiry
		case TierPersistent:
			liveUntil = addLedgers(tx.seq, tx.lt.MinPersistentTTL)
		default:
			liveUntil = addLedgers(tx.seq, tx.lt.MinTemporaryTTL)
		}
	}
	tx.stage(tier, key, &pending{entry: Entry{Value: value, LiveUntil: liveUntil}})
	return nil
}

func (tx *Tx) remove(tier Tier, key string) error {
	if tx.done {
		return ErrTxClosed
	}
	tx.stage(tier, key, &pending{deleted: true})
	return nil
}

// extend follows the extend-TTL rule: when the remaining lifetime is below
// threshold, the entry lives until seq+extendTo. Lifetimes never shrink.
func (tx *Tx) extend(tier Tier, key string, threshold, extendTo uint32) error {
	cur, ok, err := tx.load(tier, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrMissingEntry, tier, key)
	}
	if cur.Live(tx.seq) && cur.LiveUntil-tx.seq >= threshold {
		return nil
	}
	if to := addLedgers(tx.seq, extendTo); to > cur.LiveUntil {
		cur.LiveUntil = to
	}
	tx.stage(tier, key, &pending{entry: cur})
	return nil
}

func (tx *Tx) setTTL(tier Tier, key string, liveFor uint32) error {
	cur, ok, err := tx.load(tier, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrMissingEntry, tier, key)
	}
	cur.LiveUntil = addLedgers(tx.seq, liveFor)
	tx.stage(tier, key, &pending{entry: cur})
	return nil
}

type view struct {
	tx   *Tx
	tier Tier
}

func (v view) Has(key string) (bool, error) {
	_, ok, err := v.tx.load(v.tier, key)
	return ok, err
}

// Get decodes the entry into out. It reports false when the entry is absent.
func (v view) Get(key string, out any) (bool, error) {
	e, ok, err := v.tx.load(v.tier, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", v.tier, key, err)
	}
	return true, nil
}

func (v view) Set(key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", v.tier, key, err)
	}
	return v.tx.put(v.tier, key, b)
}

func (v view) Remove(key string) error { return v.tx.remove(v.tier, key) }

type instanceView struct{ view }

func (v instanceView) Extend(threshold, extendTo uint32) error {
	ok, err := v.Has(InstanceKey)
	if err != nil {
		return err
	}
	if !ok {
		v.tx.stage(TierInstance, InstanceKey, &pending{entry: Entry{
			Value:     []byte("null"),
			LiveUntil: addLedgers(v.tx.seq, extendTo),
		}})
		return nil
	}
	return v.tx.extend(TierInstance, InstanceKey, threshold, extendTo)
}

type persistentView struct{ view }

func (v persistentView) ExtendTTL(key string, threshold, extendTo uint32) error {
	return v.tx.extend(TierPersistent, key, threshold, extendTo)
}

type temporaryView struct{ view }

func (v temporaryView) SetTTL(key string, liveFor uint32) error {
	return v.tx.setTTL(TierTemporary, key, liveFor)
}
