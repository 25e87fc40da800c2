package storage

import (
	"context"
	"errors"
	"fmt"
)

// Split routes the long-lived tiers (instance and persistent) to Long and the
// temporary tier to Short.
//
// The two stores do not share a transaction. Commit snapshots the Short
// entries it is about to touch, applies Short, then Long. When Long fails the
// snapshot is written back to Short so neither store keeps the change.
// Callers must not commit concurrently against the same keys.
type Split struct {
	Long  Backend
	Short Backend
}

func (s Split) backend(t Tier) Backend {
	if t == TierTemporary {
		return s.Short
	}
	return s.Long
}

func (s Split) Load(ctx context.Context, tier Tier, key string) (Entry, bool, error) {
	return s.backend(tier).Load(ctx, tier, key)
}

func (s Split) Commit(ctx context.Context, changes []Change) error {
	var long, short []Change
	for _, c := range changes {
		if c.Tier == TierTemporary {
			short = append(short, c)
		} else {
			long = append(long, c)
		}
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return nil
		}
		return s.Long.Commit(ctx, long)
	}

	undo, err := s.snapshot(ctx, short)
	if err != nil {
		return err
	}
	if err := s.Short.Commit(ctx, short); err != nil {
		return err
	}
	if len(long) == 0 {
		return nil
	}
	if err := s.Long.Commit(ctx, long); err != nil {
		if rerr := s.Short.Commit(context.WithoutCancel(ctx), undo); rerr != nil {
			return errors.Join(err, fmt.Errorf("%w: %w", ErrRollback, rerr))
		}
		return err
	}
	return nil
}

// snapshot returns the changes that put the Short entries touched by changes
// back into their current state.
func (s Split) snapshot(ctx context.Context, changes []Change) ([]Change, error) {
	undo := make([]Change, 0, len(changes))
	for _, c := range changes {
		e, ok, err := s.Short.Load(ctx, c.Tier, c.Key)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s/%s: %w", c.Tier, c.Key, err)
		}
		if !ok {
			undo = append(undo, Change{Tier: c.Tier, Key: c.Key, Deleted: true})
			continue
		}
		undo = append(undo, Change{Tier: c.Tier, Key: c.Key, Entry: e})
	}
	return undo, nil
}
