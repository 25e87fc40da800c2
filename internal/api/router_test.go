package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/config"
	"github.com/baharkarakas/donation-token/internal/events"
	"github.com/baharkarakas/donation-token/internal/ledger"
	"github.com/baharkarakas/donation-token/internal/middleware"
	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/storage/memory"
	"github.com/baharkarakas/donation-token/internal/token"
)

type apiFixture struct {
	h     http.Handler
	clock *ledger.ManualClock
	rec   *events.Recorder
	tm    *auth.TokenManager

	admin, donor, recipient, spender models.Address
}

func newAPI(t *testing.T, limiter *middleware.RateLimiter) *apiFixture {
	t.Helper()
	f := &apiFixture{
		clock:     ledger.NewManualClock(100),
		rec:       &events.Recorder{},
		tm:        auth.NewTokenManager("access", "refresh", "test", time.Minute, time.Hour),
		admin:     models.NewAddress(),
		donor:     models.NewAddress(),
		recipient: models.NewAddress(),
		spender:   models.NewAddress(),
	}
	tok := token.New(memory.New(), f.clock, f.rec, token.DefaultConfig(), nil)
	f.h = NewRouter(RouterDeps{
		Cfg:     config.Config{Env: "dev"},
		Token:   tok,
		TM:      f.tm,
		Limiter: limiter,
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, as models.Address, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer dev-"+string(as))
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (f *apiFixture) init(t *testing.T) {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/v1/token/initialize", f.admin, map[string]any{
		"admin": f.admin, "decimal": 7, "name": "DonationToken", "symbol": "DNT",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func (f *apiFixture) balance(t *testing.T, id models.Address) string {
	t.Helper()
	rr := f.do(t, http.MethodGet, "/api/v1/token/balances/"+string(id), "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[map[string]string](t, rr)["amount"]
}

func TestHealth(t *testing.T) {
	f := newAPI(t, nil)
	rr := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestDonationFlow(t *testing.T) {
	f := newAPI(t, nil)
	f.init(t)

	rr := f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]string{"to": string(f.donor), "amount": "1000"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	minted := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "1000", minted["amount"])
	assert.Equal(t, float64(100), minted["ledger"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer", f.donor, map[string]string{
		"from": string(f.donor), "to": string(f.recipient), "amount": "500",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "500", f.balance(t, f.donor))
	assert.Equal(t, "500", f.balance(t, f.recipient))

	rr = f.do(t, http.MethodPost, "/api/v1/token/freeze", f.admin, map[string]string{"account": string(f.donor)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/api/v1/token/frozen/"+string(f.donor), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[map[string]any](t, rr)["frozen"].(bool))

	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer", f.donor, map[string]string{
		"from": string(f.donor), "to": string(f.recipient), "amount": "100",
	})
	assert.Equal(t, http.StatusLocked, rr.Code)
	assert.Equal(t, "account_frozen", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/unfreeze", f.admin, map[string]string{"account": string(f.donor)})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer", f.donor, map[string]string{
		"from": string(f.donor), "to": string(f.recipient), "amount": "100",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "400", f.balance(t, f.donor))
	assert.Equal(t, "600", f.balance(t, f.recipient))
}

func TestAllowanceFlow(t *testing.T) {
	f := newAPI(t, nil)
	f.init(t)
	f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]string{"to": string(f.donor), "amount": "1000"})

	rr := f.do(t, http.MethodPost, "/api/v1/token/approve", f.donor, map[string]any{
		"from": f.donor, "spender": f.spender, "amount": "300", "expiration_ledger": 1100,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer-from", f.spender, map[string]string{
		"spender": string(f.spender), "from": string(f.donor), "to": string(f.recipient), "amount": "200",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/api/v1/token/allowances/"+string(f.donor)+"/"+string(f.spender), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "100", decodeBody[map[string]any](t, rr)["amount"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/burn-from", f.spender, map[string]string{
		"spender": string(f.spender), "from": string(f.donor), "amount": "101",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "insufficient_allowance", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/burn", f.donor, map[string]string{"from": string(f.donor), "amount": "300"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "500", f.balance(t, f.donor))

	rr = f.do(t, http.MethodPost, "/api/v1/token/approve", f.donor, map[string]any{
		"from": f.donor, "spender": f.spender, "amount": "1", "expiration_ledger": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_expiration", decodeBody[map[string]any](t, rr)["code"])
}

func TestErrorMapping(t *testing.T) {
	f := newAPI(t, nil)

	rr := f.do(t, http.MethodGet, "/api/v1/token/admin", "", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "not_initialized", decodeBody[map[string]any](t, rr)["code"])

	// initializing for someone else is not authorized by them
	rr = f.do(t, http.MethodPost, "/api/v1/token/initialize", f.donor, map[string]any{
		"admin": f.admin, "decimal": 7, "name": "T", "symbol": "T",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	f.init(t)
	rr = f.do(t, http.MethodPost, "/api/v1/token/initialize", f.admin, map[string]any{
		"admin": f.admin, "decimal": 7, "name": "T", "symbol": "T",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_initialized", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/mint", f.donor, map[string]string{"to": string(f.donor), "amount": "5"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "unauthorized", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]string{"to": string(f.donor), "amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "negative_amount", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]string{"to": string(f.donor), "amount": "12abc"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_failed", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer", f.donor, map[string]string{
		"from": string(f.donor), "to": string(f.recipient), "amount": "1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "insufficient_funds", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPost, "/api/v1/token/mint", "", map[string]string{"to": string(f.donor), "amount": "5"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]any{"to": f.donor, "amount": "5", "memo": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")

	rr = f.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/v1/token/frozen/a:b", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_failed", decodeBody[map[string]any](t, rr)["code"])
}

func TestMovementAnswersWithCommittedBalance(t *testing.T) {
	f := newAPI(t, nil)
	f.init(t)

	rr := f.do(t, http.MethodPost, "/api/v1/token/mint", f.admin, map[string]string{"to": string(f.donor), "amount": "1000"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/api/v1/token/burn", f.donor, map[string]string{"from": string(f.donor), "amount": "300"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	burned := decodeBody[map[string]any](t, rr)
	assert.Equal(t, string(f.donor), burned["account"])
	assert.Equal(t, "700", burned["amount"])

	// a later movement does not change what the earlier one reported
	f.clock.Advance(3)
	rr = f.do(t, http.MethodPost, "/api/v1/token/transfer", f.donor, map[string]string{
		"from": string(f.donor), "to": string(f.recipient), "amount": "200",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	moved := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "500", moved["amount"])
	assert.Equal(t, float64(103), moved["ledger"])
	assert.Equal(t, "700", burned["amount"])
}

func TestMetadataAndAdmin(t *testing.T) {
	f := newAPI(t, nil)
	f.init(t)

	rr := f.do(t, http.MethodGet, "/api/v1/token/metadata", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"decimal": float64(7), "name": "DonationToken", "symbol": "DNT"}, decodeBody[map[string]any](t, rr))

	rr = f.do(t, http.MethodPut, "/api/v1/token/metadata", f.admin, map[string]any{"decimal": 300, "name": "X", "symbol": "X"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "decimal_out_of_range", decodeBody[map[string]any](t, rr)["code"])

	rr = f.do(t, http.MethodPut, "/api/v1/token/metadata", f.admin, map[string]any{"decimal": 8, "name": "UpdatedToken", "symbol": "UTK"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/token/admin", f.admin, map[string]string{"new_admin": string(f.donor)})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodGet, "/api/v1/token/admin", "", nil)
	assert.Equal(t, string(f.donor), decodeBody[map[string]string](t, rr)["admin"])

	rr = f.do(t, http.MethodGet, "/api/v1/ledger", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(100), decodeBody[map[string]any](t, rr)["sequence"])

	var kinds []models.EventKind
	for _, ev := range f.rec.All() {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []models.EventKind{models.EventInitialize, models.EventSetMetadata, models.EventSetAdmin}, kinds)
}

func TestJWTIssueAndUse(t *testing.T) {
	f := newAPI(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{"address": string(f.admin)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	pair := decodeBody[map[string]any](t, rr)
	access := pair["access_token"].(string)
	refresh := pair["refresh_token"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/token/initialize",
		bytes.NewBufferString(`{"admin":"`+string(f.admin)+`","decimal":7,"name":"T","symbol":"T"}`))
	req.Header.Set("Authorization", "Bearer "+access)
	out := httptest.NewRecorder()
	f.h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusCreated, out.Code, out.Body.String())

	// a refresh token is not an access token
	req = httptest.NewRequest(http.MethodGet, "/api/v1/token/admin", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	out = httptest.NewRecorder()
	f.h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusUnauthorized, out.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(f.admin), decodeBody[map[string]any](t, rr)["address"])
}

func TestRateLimit(t *testing.T) {
	f := newAPI(t, middleware.NewRateLimiter(1, 1))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/health", "", nil).Code)
}

func TestAuthorizationIsTheCallerOnly(t *testing.T) {
	caller := models.NewAddress()
	ctx := middleware.WithCaller(context.Background(), middleware.Caller{Address: caller})
	ac := middleware.Authorization(ctx)
	assert.True(t, ac.Authorized(caller))
	assert.False(t, ac.Authorized(models.NewAddress()))
	assert.False(t, middleware.Authorization(context.Background()).Authorized(caller))
}
