package validate

import (
	"math/big"
	"strings"

	"github.com/baharkarakas/donation-token/internal/models"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Collect returns the non-nil field errors as Errs, or nil.
func Collect(fields ...*ErrField) error {
	var out Errs
	for _, f := range fields {
		if f != nil {
			out = append(out, *f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func Address(field string, v models.Address) *ErrField {
	if v == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	if v.Validate() != nil {
		return &ErrField{Field: field, Msg: "must not contain " + models.KeySeparator}
	}
	return nil
}

// Amount parses a decimal amount into *out. The sign is left to the ledger.
func Amount(field, v string, out **big.Int) *ErrField {
	if strings.TrimSpace(v) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	n, err := models.ParseAmount(v)
	if err != nil {
		return &ErrField{Field: field, Msg: err.Error()}
	}
	*out = n
	return nil
}

func MaxLen(field, value string, n int) *ErrField {
	if len(value) > n {
		return &ErrField{Field: field, Msg: "too long"}
	}
	return nil
}
