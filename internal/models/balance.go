package models

import "math/big"

// AllowanceValue is the stored allowance record. ExpirationLedger is the last
// ledger at which Amount may be spent.
type AllowanceValue struct {
	Amount           *big.Int `json:"amount"`
	ExpirationLedger uint32   `json:"expiration_ledger"`
}

type Metadata struct {
	Decimal uint32 `json:"decimal"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}
