package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/donation-token/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type entriesRepo struct{ pool *pgxpool.Pool }

func (r *entriesRepo) Load(ctx context.Context, tier storage.Tier, key string) (storage.Entry, bool, error) {
	var (
		e         storage.Entry
		liveUntil int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT value, live_until
		   FROM ledger_entries
		  WHERE tier=$1 AND key=$2`,
		int16(tier), key,
	).Scan(&e.Value, &liveUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Entry{}, false, nil
	}
	if err != nil {
		return storage.Entry{}, false, err
	}
	e.LiveUntil = uint32(liveUntil)
	return e, true, nil
}

func (r *entriesRepo) Commit(ctx context.Context, changes []storage.Change) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		for _, c := range changes {
			var err error
			if c.Deleted {
				_, err = tx.Exec(ctx,
					`DELETE FROM ledger_entries WHERE tier=$1 AND key=$2`,
					int16(c.Tier), c.Key,
				)
			} else {
				_, err = tx.Exec(ctx,
					`INSERT INTO ledger_entries(tier, key, value, live_until, updated_at)
					 VALUES($1, $2, $3, $4, now())
					 ON CONFLICT (tier, key) DO UPDATE
					    SET value = EXCLUDED.value,
					        live_until = EXCLUDED.live_until,
					        updated_at = now()`,
					int16(c.Tier), c.Key, c.Entry.Value, int64(c.Entry.LiveUntil),
				)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Sweep deletes temporary entries that stopped being live before seq.
// Instance and persistent entries are archived rather than swept.
func (r *entriesRepo) Sweep(ctx context.Context, seq uint32) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM ledger_entries
		  WHERE tier = $1 AND live_until < $2`,
		int16(storage.TierTemporary), int64(seq),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *entriesRepo) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
