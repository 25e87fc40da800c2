// Package token implements the accounting core of a fungible token:
// balances, expiring allowances, an administrator, account freezing and
// metadata.
//
// Every public method is one invocation. Invocations are serialized by a
// ledger-wide lock and run against a buffered storage transaction that is
// committed only when the whole operation succeeded, so a failed call leaves
// the ledger exactly as it was. Events are published after the commit.
package token

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/events"
	"github.com/baharkarakas/donation-token/internal/ledger"
	"github.com/baharkarakas/donation-token/internal/metrics"
	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/storage"
)

type Token struct {
	mu      sync.Mutex
	backend storage.Backend
	clock   ledger.Clock
	sink    events.Sink
	cfg     Config
	log     *slog.Logger
}

func New(backend storage.Backend, clock ledger.Clock, sink events.Sink, cfg Config, log *slog.Logger) *Token {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = events.Multi{}
	}
	return &Token{backend: backend, clock: clock, sink: sink, cfg: cfg, log: log}
}

// Sequence returns the current ledger sequence.
func (t *Token) Sequence() uint32 { return t.clock.Sequence() }

// Receipt holds the balances an invocation committed, as they stood right
// after the commit.
type Receipt struct {
	Ledger   uint32
	Balances map[models.Address]*big.Int
}

// Balance returns the committed balance of id and whether the invocation
// wrote it.
func (r Receipt) Balance(id models.Address) (*big.Int, bool) {
	b, ok := r.Balances[id]
	if !ok {
		return nil, false
	}
	return clone(b), true
}

func (t *Token) invoke(ctx context.Context, op string, ac auth.Context, fn func(e *env) error) error {
	_, err := t.run(ctx, op, ac, fn)
	return err
}

func (t *Token) run(ctx context.Context, op string, ac auth.Context, fn func(e *env) error) (Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.clock.Sequence()
	metrics.LedgerSequence.Set(float64(seq))
	tx := storage.Begin(ctx, t.backend, seq, t.cfg.Lifetimes)
	e := &env{ctx: ctx, tx: tx, auth: ac, cfg: t.cfg}

	err := fn(e)
	if err == nil {
		err = tx.Commit()
	} else {
		tx.Discard()
	}
	if err != nil {
		metrics.OperationsFailed.WithLabelValues(op, Code(err)).Inc()
		t.log.DebugContext(ctx, "invocation aborted", "op", op, "ledger", seq, "err", err)
		return Receipt{}, err
	}

	metrics.OperationsTotal.WithLabelValues(op).Inc()
	now := time.Now().UTC()
	for _, ev := range e.events {
		ev.ID = uuid.NewString()
		ev.Ledger = seq
		ev.CreatedAt = now
		t.sink.Publish(ctx, ev)
	}
	return Receipt{Ledger: seq, Balances: e.written}, nil
}

// Initialize installs the administrator and the token metadata. It can run
// once per ledger and must be authorized by the new administrator.
func (t *Token) Initialize(ctx context.Context, ac auth.Context, admin models.Address, md models.Metadata) error {
	return t.invoke(ctx, "initialize", ac, func(e *env) error {
		has, err := hasAdministrator(e)
		if err != nil {
			return err
		}
		if has {
			return ErrAlreadyInitialized
		}
		if err := e.requireAuth(admin); err != nil {
			return err
		}
		if err := checkAddresses(admin); err != nil {
			return err
		}
		if err := writeAdministrator(e, admin); err != nil {
			return err
		}
		if err := writeMetadata(e, md); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventInitialize, Admin: admin})
		return nil
	})
}

// Mint credits amount to to. Frozen accounts may receive minted tokens.
func (t *Token) Mint(ctx context.Context, ac auth.Context, to models.Address, amount *big.Int) error {
	_, err := t.MintWithReceipt(ctx, ac, to, amount)
	return err
}

// MintWithReceipt is Mint reporting the balance of to as committed.
func (t *Token) MintWithReceipt(ctx context.Context, ac auth.Context, to models.Address, amount *big.Int) (Receipt, error) {
	return t.run(ctx, "mint", ac, func(e *env) error {
		admin, err := requireAdmin(e)
		if err != nil {
			return err
		}
		if err := checkNonnegativeAmount(amount); err != nil {
			return err
		}
		if err := checkAddresses(to); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		if err := receiveBalance(e, to, amount); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventMint, Admin: admin, To: to, Amount: clone(amount)})
		return nil
	})
}

// SetAdmin hands the administrator role to newAdmin.
func (t *Token) SetAdmin(ctx context.Context, ac auth.Context, newAdmin models.Address) error {
	return t.invoke(ctx, "set_admin", ac, func(e *env) error {
		admin, err := requireAdmin(e)
		if err != nil {
			return err
		}
		if err := checkAddresses(newAdmin); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		if err := writeAdministrator(e, newAdmin); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventSetAdmin, Admin: admin, Account: newAdmin})
		return nil
	})
}

func (t *Token) FreezeAccount(ctx context.Context, ac auth.Context, account models.Address) error {
	return t.setFrozen(ctx, ac, account, true)
}

func (t *Token) UnfreezeAccount(ctx context.Context, ac auth.Context, account models.Address) error {
	return t.setFrozen(ctx, ac, account, false)
}

func (t *Token) setFrozen(ctx context.Context, ac auth.Context, account models.Address, frozen bool) error {
	op, kind := "unfreeze_account", models.EventUnfreeze
	if frozen {
		op, kind = "freeze_account", models.EventFreeze
	}
	return t.invoke(ctx, op, ac, func(e *env) error {
		admin, err := requireAdmin(e)
		if err != nil {
			return err
		}
		if err := checkAddresses(account); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		if err := setFrozen(e, account, frozen); err != nil {
			return err
		}
		e.emit(models.Event{Kind: kind, Admin: admin, Account: account})
		return nil
	})
}

// Approve lets spender draw up to amount from from until expiration. An
// amount of zero revokes and accepts any expiration.
func (t *Token) Approve(ctx context.Context, ac auth.Context, from, spender models.Address, amount *big.Int, expiration uint32) error {
	return t.invoke(ctx, "approve", ac, func(e *env) error {
		if err := e.requireAuth(from); err != nil {
			return err
		}
		if err := checkNonnegativeAmount(amount); err != nil {
			return err
		}
		if err := checkAddresses(from, spender); err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		if err := writeAllowance(e, from, spender, amount, expiration); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventApprove, From: from, Spender: spender, Amount: clone(amount), ExpirationLedger: expiration})
		return nil
	})
}

// outbound runs the checks shared by every movement out of from.
func outbound(e *env, from models.Address, amount *big.Int, others ...models.Address) error {
	if err := checkNonnegativeAmount(amount); err != nil {
		return err
	}
	if err := checkAddresses(append([]models.Address{from}, others...)...); err != nil {
		return err
	}
	if err := e.bumpInstance(); err != nil {
		return err
	}
	frozen, err := isAccountFrozen(e, from)
	if err != nil {
		return err
	}
	if frozen {
		return ErrAccountFrozen
	}
	return nil
}

func (t *Token) Transfer(ctx context.Context, ac auth.Context, from, to models.Address, amount *big.Int) error {
	_, err := t.TransferWithReceipt(ctx, ac, from, to, amount)
	return err
}

// TransferWithReceipt is Transfer reporting both balances as committed.
func (t *Token) TransferWithReceipt(ctx context.Context, ac auth.Context, from, to models.Address, amount *big.Int) (Receipt, error) {
	return t.run(ctx, "transfer", ac, func(e *env) error {
		if err := e.requireAuth(from); err != nil {
			return err
		}
		if err := outbound(e, from, amount, to); err != nil {
			return err
		}
		if err := spendBalance(e, from, amount); err != nil {
			return err
		}
		if err := receiveBalance(e, to, amount); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventTransfer, From: from, To: to, Amount: clone(amount)})
		return nil
	})
}

// TransferFrom moves amount from from to to, drawing on spender's allowance.
func (t *Token) TransferFrom(ctx context.Context, ac auth.Context, spender, from, to models.Address, amount *big.Int) error {
	_, err := t.TransferFromWithReceipt(ctx, ac, spender, from, to, amount)
	return err
}

// TransferFromWithReceipt is TransferFrom reporting both balances as committed.
func (t *Token) TransferFromWithReceipt(ctx context.Context, ac auth.Context, spender, from, to models.Address, amount *big.Int) (Receipt, error) {
	return t.run(ctx, "transfer_from", ac, func(e *env) error {
		if err := e.requireAuth(spender); err != nil {
			return err
		}
		if err := outbound(e, from, amount, spender, to); err != nil {
			return err
		}
		if err := spendAllowance(e, from, spender, amount); err != nil {
			return err
		}
		if err := spendBalance(e, from, amount); err != nil {
			return err
		}
		if err := receiveBalance(e, to, amount); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventTransfer, From: from, To: to, Spender: spender, Amount: clone(amount)})
		return nil
	})
}

func (t *Token) Burn(ctx context.Context, ac auth.Context, from models.Address, amount *big.Int) error {
	_, err := t.BurnWithReceipt(ctx, ac, from, amount)
	return err
}

// BurnWithReceipt is Burn reporting the balance of from as committed.
func (t *Token) BurnWithReceipt(ctx context.Context, ac auth.Context, from models.Address, amount *big.Int) (Receipt, error) {
	return t.run(ctx, "burn", ac, func(e *env) error {
		if err := e.requireAuth(from); err != nil {
			return err
		}
		if err := outbound(e, from, amount); err != nil {
			return err
		}
		if err := spendBalance(e, from, amount); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventBurn, From: from, Amount: clone(amount)})
		return nil
	})
}

// BurnFrom destroys amount of from's tokens, drawing on spender's allowance.
func (t *Token) BurnFrom(ctx context.Context, ac auth.Context, spender, from models.Address, amount *big.Int) error {
	_, err := t.BurnFromWithReceipt(ctx, ac, spender, from, amount)
	return err
}

// BurnFromWithReceipt is BurnFrom reporting the balance of from as committed.
func (t *Token) BurnFromWithReceipt(ctx context.Context, ac auth.Context, spender, from models.Address, amount *big.Int) (Receipt, error) {
	return t.run(ctx, "burn_from", ac, func(e *env) error {
		if err := e.requireAuth(spender); err != nil {
			return err
		}
		if err := outbound(e, from, amount, spender); err != nil {
			return err
		}
		if err := spendAllowance(e, from, spender, amount); err != nil {
			return err
		}
		if err := spendBalance(e, from, amount); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventBurn, From: from, Spender: spender, Amount: clone(amount)})
		return nil
	})
}

// SetMetadata replaces decimals, name and symbol.
func (t *Token) SetMetadata(ctx context.Context, ac auth.Context, md models.Metadata) error {
	return t.invoke(ctx, "set_metadata", ac, func(e *env) error {
		admin, err := requireAdmin(e)
		if err != nil {
			return err
		}
		if err := e.bumpInstance(); err != nil {
			return err
		}
		if err := writeMetadata(e, md); err != nil {
			return err
		}
		e.emit(models.Event{Kind: models.EventSetMetadata, Admin: admin})
		return nil
	})
}
