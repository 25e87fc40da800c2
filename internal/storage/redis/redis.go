// Package redis stores ledger entries in Redis. It is meant for the temporary
// tier: entries get a native expiry so Redis evicts allowances by itself once
// their lifetime ends.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/donation-token/internal/storage"
)

const (
	fieldValue     = "v"
	fieldLiveUntil = "live_until"
)

// Deadliner maps a ledger sequence to the wall time at which it ends.
type Deadliner interface {
	Deadline(ledger uint32) time.Time
}

type Backend struct {
	client redis.UniversalClient
	clock  Deadliner
	prefix string
}

func New(client redis.UniversalClient, clock Deadliner, prefix string) *Backend {
	if prefix == "" {
		prefix = "token"
	}
	return &Backend{client: client, clock: clock, prefix: prefix}
}

// Dial connects to addr and pings the server.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (b *Backend) key(tier storage.Tier, key string) string {
	return b.prefix + ":" + tier.String() + ":" + key
}

func (b *Backend) Load(ctx context.Context, tier storage.Tier, key string) (storage.Entry, bool, error) {
	res, err := b.client.HGetAll(ctx, b.key(tier, key)).Result()
	if errors.Is(err, redis.Nil) {
		return storage.Entry{}, false, nil
	}
	if err != nil {
		return storage.Entry{}, false, err
	}
	if len(res) == 0 {
		return storage.Entry{}, false, nil
	}
	lu, err := strconv.ParseUint(res[fieldLiveUntil], 10, 32)
	if err != nil {
		return storage.Entry{}, false, fmt.Errorf("redis entry %s: bad live_until: %w", key, err)
	}
	return storage.Entry{Value: []byte(res[fieldValue]), LiveUntil: uint32(lu)}, true, nil
}

// Commit applies all changes inside MULTI/EXEC.
func (b *Backend) Commit(ctx context.Context, changes []storage.Change) error {
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, c := range changes {
			k := b.key(c.Tier, c.Key)
			if c.Deleted {
				p.Del(ctx, k)
				continue
			}
			p.HSet(ctx, k,
				fieldValue, c.Entry.Value,
				fieldLiveUntil, strconv.FormatUint(uint64(c.Entry.LiveUntil), 10),
			)
			if c.Entry.LiveUntil == storage.NoExpiry {
				p.Persist(ctx, k)
			} else {
				p.ExpireAt(ctx, k, b.clock.Deadline(c.Entry.LiveUntil))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}
