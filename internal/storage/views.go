package storage

// Store is the capability shared by every tier view.
type Store interface {
	Has(key string) (bool, error)
	Get(key string, out any) (bool, error)
	Set(key string, val any) error
	Remove(key string) error
}

// Instance entries live as long as the ledger instance itself.
type Instance interface {
	Store
	// Extend bumps the instance lifetime.
	Extend(threshold, extendTo uint32) error
}

// Persistent entries are refreshed on access by the application.
type Persistent interface {
	Store
	ExtendTTL(key string, threshold, extendTo uint32) error
}

// Temporary entries carry a hard TTL fixed at write time.
type Temporary interface {
	Store
	SetTTL(key string, liveFor uint32) error
}
