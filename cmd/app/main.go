// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wallet-ledger-service/internal/config"
	"wallet-ledger-service/internal/infra/api"
	apiv1 "wallet-ledger-service/internal/infra/api/apiv1"
	pg "wallet-ledger-service/internal/infra/db/postgres"
	"wallet-ledger-service/internal/infra/logging"
	"wallet-ledger-service/internal/infra/metrics"
	red "wallet-ledger-service/internal/infra/redis"
	"wallet-ledger-service/internal/infra/sched"
	"wallet-ledger-service/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	pg.StartPoolStatsReporter(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	dedupCache := red.NewDedupCache(redisClient, cfg.Redis.TTL)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	orderRepo := pg.NewOrderRepo(pool)
	walletRepo := pg.NewWalletRepo(pool)
	logRepo := pg.NewLedgerLogRepo(pool)

	// ---- Use cases ----
	bank := usecase.BankAccount{
		BankName:      cfg.Bank.Name,
		BankCode:      cfg.Bank.Code,
		AccountNumber: cfg.Bank.AccountNumber,
		AccountName:   cfg.Bank.AccountName,
	}
	ledgerUC := usecase.NewLedgerService(walletRepo, logRepo, tm, logger)
	orderUC := usecase.NewOrderManager(orderRepo, tm, bank, cfg.Orders.Expiry, logger)
	intakeUC := usecase.NewWebhookIntake(orderRepo, ledgerUC, tm, dedupCache, cfg.Webhook.APIKey, logger)

	// ---- HTTP ----
	router := chi.NewRouter()
	srv := apiv1.NewServer(orderUC, ledgerUC, intakeUC, cfg.Auth.JWTSecret, cfg.Auth.AdminAPIKey, rateLimiter, cfg.Webhook.RateLimit, logger)
	apiv1.RegisterAPIV1(router, srv)
	if cfg.Admin.Port > 0 {
		adminMux := http.NewServeMux()
		adminMux.Handle("/metrics", promhttp.Handler())
		adminSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: adminMux}
		go func() {
			logger.Info().Int("port", cfg.Admin.Port).Msg("admin server listening")
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("admin server error")
			}
		}()
	} else {
		router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	handler := api.Chain(router,
		api.Recover(logger),
		api.TraceID(logger),
		api.RequestLog(logger),
		api.Timeout(30*time.Second),
	)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: handler}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Orders.SweepInterval, orderUC, locker, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
