package token

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/events"
	"github.com/baharkarakas/donation-token/internal/ledger"
	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/storage/memory"
)

type ledgerState struct {
	ctx                    context.Context
	tok                    *Token
	clock                  *ledger.ManualClock
	admin, holder, spender models.Address
	recipient              models.Address
}

func freshLedger() (*ledgerState, error) {
	s := &ledgerState{
		ctx:       context.Background(),
		clock:     ledger.NewManualClock(1000),
		admin:     models.NewAddress(),
		holder:    models.NewAddress(),
		spender:   models.NewAddress(),
		recipient: models.NewAddress(),
	}
	s.tok = New(memory.New(), s.clock, &events.Recorder{}, DefaultConfig(), nil)
	err := s.tok.Initialize(s.ctx, auth.As(s.admin), s.admin, models.Metadata{Decimal: 7, Name: "P", Symbol: "P"})
	return s, err
}

func (s *ledgerState) bal(a models.Address) int64 {
	b, err := s.tok.Balance(s.ctx, a)
	if err != nil {
		return -1
	}
	return b.Int64()
}

func TestLedgerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("mint then burn restores the balance", prop.ForAll(
		func(start, delta int64) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(start)); err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(delta)); err != nil {
				return false
			}
			if err := s.tok.Burn(s.ctx, auth.As(s.holder), s.holder, amt(delta)); err != nil {
				return false
			}
			return s.bal(s.holder) == start
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("overdraft fails and leaves the balance unchanged", prop.ForAll(
		func(start, extra int64) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(start)); err != nil {
				return false
			}
			err = s.tok.Transfer(s.ctx, auth.As(s.holder), s.holder, s.recipient, amt(start+extra))
			return errors.Is(err, ErrInsufficientFunds) && s.bal(s.holder) == start && s.bal(s.recipient) == 0
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(1, 1<<20),
	))

	properties.Property("transfers conserve supply", prop.ForAll(
		func(start, moved int64) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(start)); err != nil {
				return false
			}
			_ = s.tok.Transfer(s.ctx, auth.As(s.holder), s.holder, s.recipient, amt(moved))
			return s.bal(s.holder)+s.bal(s.recipient) == start
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<41),
	))

	properties.Property("approve with a past expiration is rejected for positive amounts", prop.ForAll(
		func(v int64, back uint32) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			exp := s.clock.Sequence() - back
			err = s.tok.Approve(s.ctx, auth.As(s.holder), s.holder, s.spender, amt(v), exp)
			if !errors.Is(err, ErrInvalidExpiration) {
				return false
			}
			a, err := s.tok.Allowance(s.ctx, s.holder, s.spender)
			return err == nil && a.Sign() == 0
		},
		gen.Int64Range(1, 1<<40),
		gen.UInt32Range(1, 1000),
	))

	properties.Property("allowance never goes below zero", prop.ForAll(
		func(approved, first, second int64) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(1<<42)); err != nil {
				return false
			}
			if err := s.tok.Approve(s.ctx, auth.As(s.holder), s.holder, s.spender, amt(approved), s.clock.Sequence()+100); err != nil {
				return false
			}
			for _, draw := range []int64{first, second} {
				err := s.tok.TransferFrom(s.ctx, auth.As(s.spender), s.spender, s.holder, s.recipient, amt(draw))
				if err != nil && !errors.Is(err, ErrInsufficientAllowance) {
					return false
				}
			}
			left, err := s.tok.Allowance(s.ctx, s.holder, s.spender)
			if err != nil || left.Sign() < 0 {
				return false
			}
			return left.Int64()+s.bal(s.recipient) == approved
		},
		gen.Int64Range(0, 1<<30),
		gen.Int64Range(0, 1<<30),
		gen.Int64Range(0, 1<<30),
	))

	properties.Property("expired allowances read as zero", prop.ForAll(
		func(v int64, life, past uint32) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Approve(s.ctx, auth.As(s.holder), s.holder, s.spender, amt(v), s.clock.Sequence()+life); err != nil {
				return false
			}
			s.clock.Advance(life + past)
			a, err := s.tok.Allowance(s.ctx, s.holder, s.spender)
			return err == nil && a.Sign() == 0
		},
		gen.Int64Range(1, 1<<40),
		gen.UInt32Range(0, 500),
		gen.UInt32Range(1, 500),
	))

	properties.Property("frozen accounts cannot send", prop.ForAll(
		func(start, moved int64) bool {
			s, err := freshLedger()
			if err != nil {
				return false
			}
			if err := s.tok.Mint(s.ctx, auth.As(s.admin), s.holder, amt(start)); err != nil {
				return false
			}
			if err := s.tok.FreezeAccount(s.ctx, auth.As(s.admin), s.holder); err != nil {
				return false
			}
			err = s.tok.Transfer(s.ctx, auth.As(s.holder), s.holder, s.recipient, amt(moved))
			return errors.Is(err, ErrAccountFrozen) && s.bal(s.holder) == start
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
	))

	properties.TestingRun(t)
}
