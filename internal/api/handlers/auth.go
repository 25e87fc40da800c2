package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/donation-token/internal/api/httpx"
	"github.com/baharkarakas/donation-token/internal/api/validate"
	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/models"
)

type AuthHandler struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthHandler(tm *auth.TokenManager, appEnv string) *AuthHandler {
	return &AuthHandler{TM: tm, AppEnv: appEnv}
}

type issueReq struct {
	// Empty address: a fresh one is generated.
	Address models.Address `json:"address,omitempty"`
}

type tokenResp struct {
	Address      models.Address `json:"address"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"` // seconds
}

// Issue hands out a token pair for an address. Only in dev; elsewhere tokens
// come from the identity provider sharing the signing secret.
func (h *AuthHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if h.AppEnv != "dev" {
		httpx.WriteError(w, http.StatusNotImplemented, "not_implemented", "token issuing is disabled", nil)
		return
	}
	var req issueReq
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
			return
		}
	}
	if req.Address == "" {
		req.Address = models.NewAddress()
	}
	if err := validate.Collect(validate.Address("address", req.Address)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid request", err)
		return
	}
	h.writePair(w, req.Address)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	claims, isRefresh, err := h.TM.ParseAny(req.RefreshToken)
	if err != nil || !isRefresh {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid refresh token", nil)
		return
	}
	h.writePair(w, claims.Address)
}

func (h *AuthHandler) writePair(w http.ResponseWriter, addr models.Address) {
	access, refresh, exp, err := h.TM.GeneratePair(addr)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		Address:      addr,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second) / time.Second),
	})
}
