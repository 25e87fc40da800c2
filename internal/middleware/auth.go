package middleware

import (
	"net/http"
	"strings"

	"github.com/baharkarakas/donation-token/internal/api/httpx"
	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/models"
)

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// Auth resolves the bearer token into a Caller. Requests without a token
// pass through anonymously; RequireCaller rejects them where needed.
//
// DEV: Bearer dev-<address> | PROD/DEV: Bearer <JWT(access)>
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if ah == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[len("Bearer "):])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			addr := models.Address(strings.TrimPrefix(token, "dev-"))
			if addr.Validate() != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid dev token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), Caller{Address: addr})))
			return
		}

		claims, isRefresh, err := m.TM.ParseAny(token)
		if err != nil || isRefresh {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid access token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), Caller{Address: claims.Address})))
	})
}

// RequireCaller rejects anonymous requests.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
