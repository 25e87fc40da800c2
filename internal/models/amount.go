package models

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// MaxAmount and MinAmount bound amounts to a signed 128-bit integer.
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	ErrAmountOutOfRange = errors.New("amount out of 128-bit range")
	ErrAmountSyntax     = errors.New("amount is not a decimal integer")
)

// InRange reports whether v fits into a signed 128-bit integer.
func InRange(v *big.Int) bool {
	return v.Cmp(MinAmount) >= 0 && v.Cmp(MaxAmount) <= 0
}

// ParseAmount parses a base-10 amount and checks its range. Sign is not
// checked here.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAmountSyntax, s)
	}
	if !InRange(v) {
		return nil, fmt.Errorf("%w: %s", ErrAmountOutOfRange, s)
	}
	return v, nil
}

// Zero returns a new zero amount.
func Zero() *big.Int { return new(big.Int) }
