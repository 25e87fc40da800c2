package handlers

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/donation-token/internal/api/httpx"
	"github.com/baharkarakas/donation-token/internal/api/validate"
	"github.com/baharkarakas/donation-token/internal/middleware"
	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/repository"
	"github.com/baharkarakas/donation-token/internal/token"
)

// TokenHandler exposes token operations over HTTP. The authenticated caller
// is the only identity that authorizes an operation.
type TokenHandler struct {
	Tok    *token.Token
	Events repository.Events // nil without the postgres event store
}

func NewTokenHandler(tok *token.Token, ev repository.Events) *TokenHandler {
	return &TokenHandler{Tok: tok, Events: ev}
}

var statusByCode = map[string]int{
	"unauthorized":           http.StatusForbidden,
	"not_initialized":        http.StatusConflict,
	"already_initialized":    http.StatusConflict,
	"account_frozen":         http.StatusLocked,
	"insufficient_funds":     http.StatusUnprocessableEntity,
	"insufficient_allowance": http.StatusUnprocessableEntity,
	"negative_amount":        http.StatusBadRequest,
	"invalid_expiration":     http.StatusBadRequest,
	"decimal_out_of_range":   http.StatusBadRequest,
	"overflow":               http.StatusBadRequest,
	"invalid_address":        http.StatusBadRequest,
	"invalid_amount":         http.StatusBadRequest,
}

func writeTokenError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validate.Errs
	if errors.As(err, &verrs) {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid request", verrs)
		return
	}
	code := token.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		slog.ErrorContext(r.Context(), "token operation failed",
			"err", err, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error", nil)
		return
	}
	httpx.WriteError(w, status, code, err.Error(), nil)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(w, r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return false
	}
	return true
}

type metadataBody struct {
	Decimal uint32 `json:"decimal"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

func (b metadataBody) model() models.Metadata {
	return models.Metadata{Decimal: b.Decimal, Name: b.Name, Symbol: b.Symbol}
}

func (b metadataBody) validate() []*validate.ErrField {
	return []*validate.ErrField{
		validate.Required("name", b.Name),
		validate.Required("symbol", b.Symbol),
		validate.MaxLen("name", b.Name, 64),
		validate.MaxLen("symbol", b.Symbol, 16),
	}
}

func (h *TokenHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Admin models.Address `json:"admin"`
		metadataBody
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Collect(append(req.validate(), validate.Address("admin", req.Admin))...); err != nil {
		writeTokenError(w, r, err)
		return
	}
	if err := h.Tok.Initialize(r.Context(), middleware.Authorization(r.Context()), req.Admin, req.model()); err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"admin": req.Admin, "decimal": req.Decimal, "name": req.Name, "symbol": req.Symbol})
}

func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     models.Address `json:"to"`
		Amount string         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(validate.Address("to", req.To), validate.Amount("amount", req.Amount, &amount)); err != nil {
		writeTokenError(w, r, err)
		return
	}
	rc, err := h.Tok.MintWithReceipt(r.Context(), middleware.Authorization(r.Context()), req.To, amount)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeCommitted(w, rc, req.To)
}

func (h *TokenHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewAdmin models.Address `json:"new_admin"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Collect(validate.Address("new_admin", req.NewAdmin)); err != nil {
		writeTokenError(w, r, err)
		return
	}
	if err := h.Tok.SetAdmin(r.Context(), middleware.Authorization(r.Context()), req.NewAdmin); err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]models.Address{"admin": req.NewAdmin})
}

func (h *TokenHandler) ReadAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Tok.ReadAdmin(r.Context())
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]models.Address{"admin": admin})
}

func (h *TokenHandler) Freeze(w http.ResponseWriter, r *http.Request)   { h.setFrozen(w, r, true) }
func (h *TokenHandler) Unfreeze(w http.ResponseWriter, r *http.Request) { h.setFrozen(w, r, false) }

func (h *TokenHandler) setFrozen(w http.ResponseWriter, r *http.Request, frozen bool) {
	var req struct {
		Account models.Address `json:"account"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Collect(validate.Address("account", req.Account)); err != nil {
		writeTokenError(w, r, err)
		return
	}
	ac := middleware.Authorization(r.Context())
	var err error
	if frozen {
		err = h.Tok.FreezeAccount(r.Context(), ac, req.Account)
	} else {
		err = h.Tok.UnfreezeAccount(r.Context(), ac, req.Account)
	}
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, frozenResp{Account: req.Account, Frozen: frozen})
}

type frozenResp struct {
	Account models.Address `json:"account"`
	Frozen  bool           `json:"frozen"`
}

func (h *TokenHandler) IsFrozen(w http.ResponseWriter, r *http.Request) {
	id := models.Address(chi.URLParam(r, "id"))
	if err := validate.Collect(validate.Address("id", id)); err != nil {
		writeTokenError(w, r, err)
		return
	}
	frozen, err := h.Tok.IsFrozen(r.Context(), id)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, frozenResp{Account: id, Frozen: frozen})
}

func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From             models.Address `json:"from"`
		Spender          models.Address `json:"spender"`
		Amount           string         `json:"amount"`
		ExpirationLedger uint32         `json:"expiration_ledger"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(
		validate.Address("from", req.From),
		validate.Address("spender", req.Spender),
		validate.Amount("amount", req.Amount, &amount),
	); err != nil {
		writeTokenError(w, r, err)
		return
	}
	if err := h.Tok.Approve(r.Context(), middleware.Authorization(r.Context()), req.From, req.Spender, amount, req.ExpirationLedger); err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, allowanceResp{
		From: req.From, Spender: req.Spender, Amount: amount.String(), ExpirationLedger: req.ExpirationLedger,
	})
}

type allowanceResp struct {
	From             models.Address `json:"from"`
	Spender          models.Address `json:"spender"`
	Amount           string         `json:"amount"`
	ExpirationLedger uint32         `json:"expiration_ledger,omitempty"`
}

func (h *TokenHandler) Allowance(w http.ResponseWriter, r *http.Request) {
	from := models.Address(chi.URLParam(r, "from"))
	spender := models.Address(chi.URLParam(r, "spender"))
	a, err := h.Tok.Allowance(r.Context(), from, spender)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, allowanceResp{From: from, Spender: spender, Amount: a.String()})
}

func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   models.Address `json:"from"`
		To     models.Address `json:"to"`
		Amount string         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(
		validate.Address("from", req.From),
		validate.Address("to", req.To),
		validate.Amount("amount", req.Amount, &amount),
	); err != nil {
		writeTokenError(w, r, err)
		return
	}
	rc, err := h.Tok.TransferWithReceipt(r.Context(), middleware.Authorization(r.Context()), req.From, req.To, amount)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeCommitted(w, rc, req.From)
}

func (h *TokenHandler) TransferFrom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spender models.Address `json:"spender"`
		From    models.Address `json:"from"`
		To      models.Address `json:"to"`
		Amount  string         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(
		validate.Address("spender", req.Spender),
		validate.Address("from", req.From),
		validate.Address("to", req.To),
		validate.Amount("amount", req.Amount, &amount),
	); err != nil {
		writeTokenError(w, r, err)
		return
	}
	rc, err := h.Tok.TransferFromWithReceipt(r.Context(), middleware.Authorization(r.Context()), req.Spender, req.From, req.To, amount)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeCommitted(w, rc, req.From)
}

func (h *TokenHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   models.Address `json:"from"`
		Amount string         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(validate.Address("from", req.From), validate.Amount("amount", req.Amount, &amount)); err != nil {
		writeTokenError(w, r, err)
		return
	}
	rc, err := h.Tok.BurnWithReceipt(r.Context(), middleware.Authorization(r.Context()), req.From, amount)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeCommitted(w, rc, req.From)
}

func (h *TokenHandler) BurnFrom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Spender models.Address `json:"spender"`
		From    models.Address `json:"from"`
		Amount  string         `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	var amount *big.Int
	if err := validate.Collect(
		validate.Address("spender", req.Spender),
		validate.Address("from", req.From),
		validate.Amount("amount", req.Amount, &amount),
	); err != nil {
		writeTokenError(w, r, err)
		return
	}
	rc, err := h.Tok.BurnFromWithReceipt(r.Context(), middleware.Authorization(r.Context()), req.Spender, req.From, amount)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeCommitted(w, rc, req.From)
}

type balanceResp struct {
	Account models.Address `json:"account"`
	Amount  string         `json:"amount"`
	Ledger  uint32         `json:"ledger,omitempty"`
}

func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := models.Address(chi.URLParam(r, "id"))
	b, err := h.Tok.Balance(r.Context(), id)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResp{Account: id, Amount: b.String()})
}

// writeCommitted answers a movement with the balance of id as its own
// invocation committed it.
func writeCommitted(w http.ResponseWriter, rc token.Receipt, id models.Address) {
	b, ok := rc.Balance(id)
	if !ok {
		b = new(big.Int)
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResp{Account: id, Amount: b.String(), Ledger: rc.Ledger})
}

func (h *TokenHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.Tok.Metadata(r.Context())
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, metadataBody{Decimal: md.Decimal, Name: md.Name, Symbol: md.Symbol})
}

func (h *TokenHandler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataBody
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Collect(req.validate()...); err != nil {
		writeTokenError(w, r, err)
		return
	}
	if err := h.Tok.SetMetadata(r.Context(), middleware.Authorization(r.Context()), req.model()); err != nil {
		writeTokenError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

func (h *TokenHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]uint32{"sequence": h.Tok.Sequence()})
}

type eventResp struct {
	models.Event
	Amount string `json:"amount,omitempty"`
}

// ListEvents lists stored events, newest first.
func (h *TokenHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		httpx.WriteError(w, http.StatusNotImplemented, "not_implemented", "event store is not configured", nil)
		return
	}
	account := models.Address(r.URL.Query().Get("account"))
	if account != "" && account.Validate() != nil {
		writeTokenError(w, r, models.ErrInvalidAddress)
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	evs, err := h.Events.List(r.Context(), account, limit, offset)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	out := make([]eventResp, 0, len(evs))
	for _, ev := range evs {
		er := eventResp{Event: ev}
		if ev.Amount != nil {
			er.Amount = ev.Amount.String()
		}
		out = append(out, er)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
