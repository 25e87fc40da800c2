package token

import (
	"fmt"
	"math/big"

	"github.com/baharkarakas/donation-token/internal/models"
)

func allowanceKey(from, spender models.Address) string {
	return "Allowance" + models.KeySeparator + string(from) + models.KeySeparator + string(spender)
}

// readAllowance returns the effective allowance. An allowance past its
// expiration reads as amount 0 but keeps the stored expiration; the stored
// record is left as is.
func readAllowance(e *env, from, spender models.Address) (models.AllowanceValue, error) {
	var v models.AllowanceValue
	ok, err := e.tx.Temporary().Get(allowanceKey(from, spender), &v)
	if err != nil {
		return models.AllowanceValue{}, err
	}
	if !ok {
		return models.AllowanceValue{Amount: models.Zero()}, nil
	}
	if v.Amount == nil || v.ExpirationLedger < e.seq() {
		return models.AllowanceValue{Amount: models.Zero(), ExpirationLedger: v.ExpirationLedger}, nil
	}
	return v, nil
}

// writeAllowance stores the allowance. A positive amount must not be already
// expired and gets a TTL ending exactly at its expiration.
func writeAllowance(e *env, from, spender models.Address, amount *big.Int, expiration uint32) error {
	seq := e.seq()
	positive := amount.Sign() > 0
	if positive && expiration < seq {
		return fmt.Errorf("%w: %d < %d", ErrInvalidExpiration, expiration, seq)
	}

	key := allowanceKey(from, spender)
	if err := e.tx.Temporary().Set(key, models.AllowanceValue{Amount: amount, ExpirationLedger: expiration}); err != nil {
		return err
	}
	if positive {
		return e.tx.Temporary().SetTTL(key, expiration-seq)
	}
	return nil
}

func spendAllowance(e *env, from, spender models.Address, amount *big.Int) error {
	a, err := readAllowance(e, from, spender)
	if err != nil {
		return err
	}
	if a.Amount.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s may spend %s of %s, needs %s", ErrInsufficientAllowance, spender, a.Amount, from, amount)
	}
	return writeAllowance(e, from, spender, new(big.Int).Sub(a.Amount, amount), a.ExpirationLedger)
}
