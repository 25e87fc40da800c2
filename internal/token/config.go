package token

import "github.com/baharkarakas/donation-token/internal/storage"

// Config holds the lifetime constants, in ledgers.
type Config struct {
	InstanceLifetimeThreshold uint32
	InstanceBumpAmount        uint32
	BalanceLifetimeThreshold  uint32
	BalanceBumpAmount         uint32
	Lifetimes                 storage.Lifetimes
}

func DefaultConfig() Config {
	return Config{
		InstanceLifetimeThreshold: 5088,
		InstanceBumpAmount:        5088,
		BalanceLifetimeThreshold:  5088,
		BalanceBumpAmount:         5088,
		Lifetimes:                 storage.DefaultLifetimes(),
	}
}
