package token

import "github.com/baharkarakas/donation-token/internal/models"

const adminKey = "Admin"

func hasAdministrator(e *env) (bool, error) {
	return e.tx.Instance().Has(adminKey)
}

func readAdministrator(e *env) (models.Address, error) {
	var id models.Address
	ok, err := e.tx.Instance().Get(adminKey, &id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return id, nil
}

func writeAdministrator(e *env, id models.Address) error {
	return e.tx.Instance().Set(adminKey, id)
}

// requireAdmin reads the administrator and checks the invocation is
// authorized by it.
func requireAdmin(e *env) (models.Address, error) {
	admin, err := readAdministrator(e)
	if err != nil {
		return "", err
	}
	if err := e.requireAuth(admin); err != nil {
		return "", err
	}
	return admin, nil
}
