package token

import (
	"errors"

	"github.com/baharkarakas/donation-token/internal/models"
)

// Every error aborts the invocation; nothing it staged is committed.
var (
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotInitialized        = errors.New("not initialized")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNegativeAmount        = errors.New("negative amount is not allowed")
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidExpiration     = errors.New("expiration_ledger is less than ledger seq when amount > 0")
	ErrAccountFrozen         = errors.New("account is frozen")
	ErrDecimalOutOfRange     = errors.New("decimal must fit in a u8")
	ErrOverflow              = errors.New("amount overflows 128 bits")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrNotInitialized, "not_initialized"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNegativeAmount, "negative_amount"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientAllowance, "insufficient_allowance"},
	{ErrInvalidExpiration, "invalid_expiration"},
	{ErrAccountFrozen, "account_frozen"},
	{ErrDecimalOutOfRange, "decimal_out_of_range"},
	{ErrOverflow, "overflow"},
	{models.ErrInvalidAddress, "invalid_address"},
	{models.ErrAmountSyntax, "invalid_amount"},
	{models.ErrAmountOutOfRange, "overflow"},
}

// Code returns a stable machine-readable code for err, or "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
