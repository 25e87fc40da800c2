package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/storage"
)

// env is the state of one invocation.
type env struct {
	ctx    context.Context
	tx     *storage.Tx
	auth   auth.Context
	cfg    Config
	events []models.Event

	// written holds the last balance staged per account.
	written map[models.Address]*big.Int
}

func (e *env) seq() uint32 { return e.tx.Sequence() }

func (e *env) requireAuth(id models.Address) error {
	if e.auth == nil || !e.auth.Authorized(id) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, id)
	}
	return nil
}

func (e *env) bumpInstance() error {
	return e.tx.Instance().Extend(e.cfg.InstanceLifetimeThreshold, e.cfg.InstanceBumpAmount)
}

func (e *env) emit(ev models.Event) {
	e.events = append(e.events, ev)
}

func checkNonnegativeAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: missing amount", models.ErrAmountSyntax)
	}
	if !models.InRange(amount) {
		return fmt.Errorf("%w: %s", ErrOverflow, amount)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	return nil
}

func checkAddresses(addrs ...models.Address) error {
	for _, a := range addrs {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %q", err, a)
		}
	}
	return nil
}

func clone(v *big.Int) *big.Int { return new(big.Int).Set(v) }
