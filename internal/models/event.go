package models

import (
	"math/big"
	"time"
)

type EventKind string

const (
	EventInitialize  EventKind = "initialize"
	EventMint        EventKind = "mint"
	EventSetAdmin    EventKind = "set_admin"
	EventFreeze      EventKind = "frz_acct"
	EventUnfreeze    EventKind = "unfrz_acc"
	EventApprove     EventKind = "approve"
	EventTransfer    EventKind = "transfer"
	EventBurn        EventKind = "burn"
	EventSetMetadata EventKind = "set_metadata"
)

// Event is a domain event emitted by a committed token operation. Unused
// fields are left zero.
type Event struct {
	ID               string    `json:"id"`
	Kind             EventKind `json:"kind"`
	Ledger           uint32    `json:"ledger"`
	Admin            Address   `json:"admin,omitempty"`
	From             Address   `json:"from,omitempty"`
	To               Address   `json:"to,omitempty"`
	Spender          Address   `json:"spender,omitempty"`
	Account          Address   `json:"account,omitempty"`
	Amount           *big.Int  `json:"amount,omitempty"`
	ExpirationLedger uint32    `json:"expiration_ledger,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
