package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/donation-token/internal/api/handlers"
	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/config"
	"github.com/baharkarakas/donation-token/internal/metrics"
	"github.com/baharkarakas/donation-token/internal/middleware"
	"github.com/baharkarakas/donation-token/internal/repository"
	"github.com/baharkarakas/donation-token/internal/token"
)

type RouterDeps struct {
	Cfg     config.Config
	Token   *token.Token
	TM      *auth.TokenManager
	Events  repository.Events       // optional
	Limiter *middleware.RateLimiter // optional
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.TM, d.Cfg.Env)
	tokH := handlers.NewTokenHandler(d.Token, d.Events)
	am := middleware.NewAuthMiddleware(d.TM, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", authH.Issue)
		r.Post("/auth/refresh", authH.Refresh)

		r.Get("/ledger", tokH.Ledger)
		r.Get("/events", tokH.ListEvents)

		r.Route("/token", func(r chi.Router) {
			r.Use(am.Auth)

			// reads
			r.Get("/admin", tokH.ReadAdmin)
			r.Get("/metadata", tokH.Metadata)
			r.Get("/balances/{id}", tokH.Balance)
			r.Get("/allowances/{from}/{spender}", tokH.Allowance)
			r.Get("/frozen/{id}", tokH.IsFrozen)

			// writes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCaller)
				r.Post("/initialize", tokH.Initialize)
				r.Post("/mint", tokH.Mint)
				r.Post("/admin", tokH.SetAdmin)
				r.Post("/freeze", tokH.Freeze)
				r.Post("/unfreeze", tokH.Unfreeze)
				r.Post("/approve", tokH.Approve)
				r.Post("/transfer", tokH.Transfer)
				r.Post("/transfer-from", tokH.TransferFrom)
				r.Post("/burn", tokH.Burn)
				r.Post("/burn-from", tokH.BurnFrom)
				r.Put("/metadata", tokH.SetMetadata)
			})
		})
	})

	return r
}
