package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type eventsRepo struct{ pool *pgxpool.Pool }

func nullable(a models.Address) *string {
	if a == "" {
		return nil
	}
	s := string(a)
	return &s
}

func (r *eventsRepo) Create(ctx context.Context, e models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var amount *string
	if e.Amount != nil {
		s := e.Amount.String()
		amount = &s
	}
	var exp *int64
	if e.ExpirationLedger != 0 {
		v := int64(e.ExpirationLedger)
		exp = &v
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_events(id, kind, ledger, admin, from_account, to_account, spender, account, amount, expiration_ledger, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10,$11)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Kind), int64(e.Ledger),
		nullable(e.Admin), nullable(e.From), nullable(e.To), nullable(e.Spender), nullable(e.Account),
		amount, exp, e.CreatedAt,
	)
	return err
}

// List returns events newest first; an empty account lists all events.
func (r *eventsRepo) List(ctx context.Context, account models.Address, limit, offset int) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, ledger, admin, from_account, to_account, spender, account, amount::text, expiration_ledger, created_at
		   FROM token_events
		  WHERE $1 = '' OR $1 IN (admin, from_account, to_account, spender, account)
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		string(account), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e                                      models.Event
			kind                                   string
			ledger                                 int64
			admin, from, to, spender, acct, amount *string
			exp                                    *int64
		)
		if err := rows.Scan(&e.ID, &kind, &ledger, &admin, &from, &to, &spender, &acct, &amount, &exp, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = models.EventKind(kind)
		e.Ledger = uint32(ledger)
		e.Admin, e.From, e.To, e.Spender, e.Account = deref(admin), deref(from), deref(to), deref(spender), deref(acct)
		if amount != nil {
			v, ok := new(big.Int).SetString(*amount, 10)
			if !ok {
				return nil, fmt.Errorf("event %s: bad amount %q", e.ID, *amount)
			}
			e.Amount = v
		}
		if exp != nil {
			e.ExpirationLedger = uint32(*exp)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func deref(s *string) models.Address {
	if s == nil {
		return ""
	}
	return models.Address(*s)
}
