package token

import (
	"context"
	"math/big"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/models"
)

// Balance returns the balance of id. Reading bumps the lifetime of the
// instance and of the balance entry.
func (t *Token) Balance(ctx context.Context, id models.Address) (*big.Int, error) {
	var out *big.Int
	err := t.invoke(ctx, "balance", auth.None, func(e *env) error {
		if err := checkAddresses(id); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		bal, err := readBalance(e, id)
		out = bal
		return err
	})
	return out, err
}

// DonationBalance is an alias of Balance.
func (t *Token) DonationBalance(ctx context.Context, id models.Address) (*big.Int, error) {
	return t.Balance(ctx, id)
}

// Allowance returns the effective amount spender may draw from from.
func (t *Token) Allowance(ctx context.Context, from, spender models.Address) (*big.Int, error) {
	var out *big.Int
	err := t.invoke(ctx, "allowance", auth.None, func(e *env) error {
		if err := checkAddresses(from, spender); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		a, err := readAllowance(e, from, spender)
		out = a.Amount
		return err
	})
	return out, err
}

func (t *Token) HasAdmin(ctx context.Context) (bool, error) {
	var out bool
	err := t.invoke(ctx, "has_admin", auth.None, func(e *env) error {
		has, err := hasAdministrator(e)
		out = has
		return err
	})
	return out, err
}

func (t *Token) ReadAdmin(ctx context.Context) (models.Address, error) {
	var out models.Address
	err := t.invoke(ctx, "read_admin", auth.None, func(e *env) error {
		admin, err := readAdministrator(e)
		out = admin
		return err
	})
	return out, err
}

// IsFrozen has no side effects.
func (t *Token) IsFrozen(ctx context.Context, id models.Address) (bool, error) {
	var out bool
	err := t.invoke(ctx, "is_frozen", auth.None, func(e *env) error {
		if err := checkAddresses(id); err != nil {
			return err
		}
		frozen, err := isAccountFrozen(e, id)
		out = frozen
		return err
	})
	return out, err
}

func (t *Token) Metadata(ctx context.Context) (models.Metadata, error) {
	var out models.Metadata
	err := t.invoke(ctx, "metadata", auth.None, func(e *env) error {
		md, err := readMetadata(e)
		out = md
		return err
	})
	return out, err
}

func (t *Token) Decimals(ctx context.Context) (uint32, error) {
	md, err := t.Metadata(ctx)
	return md.Decimal, err
}

func (t *Token) Name(ctx context.Context) (string, error) {
	md, err := t.Metadata(ctx)
	return md.Name, err
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	md, err := t.Metadata(ctx)
	return md.Symbol, err
}
