package token

import (
	"fmt"
	"math/big"

	"github.com/baharkarakas/donation-token/internal/models"
)

func balanceKey(addr models.Address) string { return "Balance" + models.KeySeparator + string(addr) }

// readBalance returns the stored balance, 0 when absent. A present entry has
// its lifetime bumped.
func readBalance(e *env, addr models.Address) (*big.Int, error) {
	key := balanceKey(addr)
	v := new(big.Int)
	ok, err := e.tx.Persistent().Get(key, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.Zero(), nil
	}
	if err := e.tx.Persistent().ExtendTTL(key, e.cfg.BalanceLifetimeThreshold, e.cfg.BalanceBumpAmount); err != nil {
		return nil, err
	}
	return v, nil
}

func writeBalance(e *env, addr models.Address, amount *big.Int) error {
	key := balanceKey(addr)
	if err := e.tx.Persistent().Set(key, amount); err != nil {
		return err
	}
	if e.written == nil {
		e.written = make(map[models.Address]*big.Int)
	}
	e.written[addr] = clone(amount)
	return e.tx.Persistent().ExtendTTL(key, e.cfg.BalanceLifetimeThreshold, e.cfg.BalanceBumpAmount)
}

// receiveBalance credits amount to addr.
func receiveBalance(e *env, addr models.Address, amount *big.Int) error {
	bal, err := readBalance(e, addr)
	if err != nil {
		return err
	}
	sum := new(big.Int).Add(bal, amount)
	if !models.InRange(sum) {
		return fmt.Errorf("%w: balance of %s", ErrOverflow, addr)
	}
	return writeBalance(e, addr, sum)
}

// spendBalance debits amount from addr.
func spendBalance(e *env, addr models.Address, amount *big.Int) error {
	bal, err := readBalance(e, addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, addr, bal, amount)
	}
	return writeBalance(e, addr, new(big.Int).Sub(bal, amount))
}
