package models

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidAddress is returned for empty addresses or ones containing the
// storage key separator.
var ErrInvalidAddress = errors.New("invalid address")

// KeySeparator joins storage key components.
const KeySeparator = ":"

// Address is an opaque account principal.
type Address string

// NewAddress returns a fresh random address.
func NewAddress() Address {
	return Address("G" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")))
}

func (a Address) Validate() error {
	if strings.TrimSpace(string(a)) == "" || strings.Contains(string(a), KeySeparator) {
		return ErrInvalidAddress
	}
	return nil
}

func (a Address) String() string { return string(a) }
