// Package memory is an in-process storage backend.
package memory

import (
	"context"
	"sync"

	"github.com/baharkarakas/donation-token/internal/storage"
)

type Backend struct {
	mu      sync.RWMutex
	entries map[storage.Tier]map[string]storage.Entry
}

func New() *Backend {
	return &Backend{entries: make(map[storage.Tier]map[string]storage.Entry)}
}

func (b *Backend) Load(_ context.Context, tier storage.Tier, key string) (storage.Entry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[tier][key]
	if !ok {
		return storage.Entry{}, false, nil
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, true, nil
}

func (b *Backend) Commit(ctx context.Context, changes []storage.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range changes {
		m := b.entries[c.Tier]
		if m == nil {
			m = make(map[string]storage.Entry)
			b.entries[c.Tier] = m
		}
		if c.Deleted {
			delete(m, c.Key)
			continue
		}
		m[c.Key] = storage.Entry{
			Value:     append([]byte(nil), c.Entry.Value...),
			LiveUntil: c.Entry.LiveUntil,
		}
	}
	return nil
}

// Evict physically removes temporary entries whose lifetime ended before seq,
// and returns how many were dropped. Lapsed persistent entries stay archived.
func (b *Backend) Evict(seq uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, e := range b.entries[storage.TierTemporary] {
		if !e.Live(seq) {
			delete(b.entries[storage.TierTemporary], k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries of a tier, live or not.
func (b *Backend) Len(tier storage.Tier) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries[tier])
}

// Sweep is Evict with the signature shared by durable backends.
func (b *Backend) Sweep(_ context.Context, seq uint32) (int64, error) {
	return int64(b.Evict(seq)), nil
}
