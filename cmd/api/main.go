package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/donation-token/internal/api"
	"github.com/baharkarakas/donation-token/internal/auth"
	"github.com/baharkarakas/donation-token/internal/config"
	"github.com/baharkarakas/donation-token/internal/db"
	"github.com/baharkarakas/donation-token/internal/events"
	"github.com/baharkarakas/donation-token/internal/ledger"
	"github.com/baharkarakas/donation-token/internal/logger"
	"github.com/baharkarakas/donation-token/internal/metrics"
	"github.com/baharkarakas/donation-token/internal/middleware"
	"github.com/baharkarakas/donation-token/internal/repository"
	"github.com/baharkarakas/donation-token/internal/repository/postgres"
	"github.com/baharkarakas/donation-token/internal/services"
	"github.com/baharkarakas/donation-token/internal/storage"
	"github.com/baharkarakas/donation-token/internal/storage/memory"
	redisstore "github.com/baharkarakas/donation-token/internal/storage/redis"
	"github.com/baharkarakas/donation-token/internal/token"
	"github.com/baharkarakas/donation-token/internal/worker"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := ledger.NewWallClock(cfg.LedgerGenesis, cfg.LedgerInterval)
	janitor := services.NewJanitorService(clock, log)
	sinks := events.Multi{events.Log{L: log}}

	wp := worker.NewPool(cfg.Workers, 1024)
	defer wp.Stop()

	var (
		backend  storage.Backend
		eventsDB repository.Events
	)
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				log.Error("migrations", "err", err)
				os.Exit(1)
			}
		}

		repos := postgres.NewRepositories(pool)
		backend = repos.Entries
		janitor.Add("postgres", repos.Entries)
		eventsDB = repos.Events
		sinks = append(sinks, events.Async{Pool: wp, Next: events.Store{Repo: repos.Events, Log: log}})

		if cfg.RedisAddr != "" {
			rdb, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				log.Error("redis connect", "err", err)
				os.Exit(1)
			}
			defer rdb.Close()
			// redis expires temporary entries natively
			backend = storage.Split{Long: repos.Entries, Short: redisstore.New(rdb, clock, "token")}
		}
	default:
		mem := memory.New()
		backend = mem
		janitor.Add("memory", mem)
	}

	tok := token.New(backend, clock, sinks, token.Config{
		InstanceLifetimeThreshold: cfg.InstanceLifetimeThreshold,
		InstanceBumpAmount:        cfg.InstanceBumpAmount,
		BalanceLifetimeThreshold:  cfg.BalanceLifetimeThreshold,
		BalanceBumpAmount:         cfg.BalanceBumpAmount,
		Lifetimes: storage.Lifetimes{
			MinPersistentTTL: cfg.MinPersistentTTL,
			MinTemporaryTTL:  cfg.MinTemporaryTTL,
		},
	}, log)

	var limiter *middleware.RateLimiter
	if cfg.RateRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateRPS, cfg.RateRPS)
		janitor.Add("rate_limiter", services.SweepFunc(func(context.Context, uint32) (int64, error) {
			return int64(limiter.Cleanup(time.Now())), nil
		}))
	}
	go janitor.Run(ctx, cfg.SweepEvery)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:     cfg,
		Token:   tok,
		TM:      auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTTTL, cfg.JWTRefreshTTL),
		Events:  eventsDB,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting",
			"port", cfg.HTTPPort,
			"env", cfg.Env,
			"storage", cfg.StorageBackend,
			"redis", cfg.RedisAddr != "",
			"ledger", clock.Sequence(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	// flush queued events before the stores close
	wp.Stop()
}
