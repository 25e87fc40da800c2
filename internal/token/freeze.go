package token

import "github.com/baharkarakas/donation-token/internal/models"

func frozenKey(addr models.Address) string { return "Frozen" + models.KeySeparator + string(addr) }

func isAccountFrozen(e *env, addr models.Address) (bool, error) {
	return e.tx.Instance().Has(frozenKey(addr))
}

func setFrozen(e *env, addr models.Address, frozen bool) error {
	if frozen {
		return e.tx.Instance().Set(frozenKey(addr), true)
	}
	return e.tx.Instance().Remove(frozenKey(addr))
}
