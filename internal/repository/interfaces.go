package repository

import (
	"context"

	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/storage"
	"github.com/jackc/pgx/v5"
)

// Entries is a durable storage.Backend that can also drop entries whose
// lifetime has ended.
type Entries interface {
	storage.Backend
	Sweep(ctx context.Context, seq uint32) (int64, error)

	// Atomic block: run fn inside a single DB transaction (pgx.Tx).
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

type Events interface {
	Create(ctx context.Context, e models.Event) error
	List(ctx context.Context, account models.Address, limit, offset int) ([]models.Event, error)
}
