package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/vaultline/ledgerd/internal/adapter/http"
	"github.com/vaultline/ledgerd/internal/adapter/http/handler"
	postgresRepo "github.com/vaultline/ledgerd/internal/adapter/repository/postgres"
	redisRepo "github.com/vaultline/ledgerd/internal/adapter/repository/redis"
	"github.com/vaultline/ledgerd/internal/domain"
	"github.com/vaultline/ledgerd/internal/infrastructure/config"
	"github.com/vaultline/ledgerd/internal/infrastructure/logger"
	"github.com/vaultline/ledgerd/internal/infrastructure/metrics"
	"github.com/vaultline/ledgerd/internal/infrastructure/postgres"
	"github.com/vaultline/ledgerd/internal/infrastructure/redis"
	"github.com/vaultline/ledgerd/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	// Run migrations before accepting traffic
	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	txnRepo := postgresRepo.NewTransactionRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	idemStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	// Initialize use cases
	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, txnRepo, auditRepo, idemStore, idGen, retrier, usecase.PostingConfig{
		LockTimeout:       cfg.LockTimeout,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		SubmitWaitTimeout: cfg.SubmitWaitTimeout,
		Validation: domain.ValidationOptions{
			MaxEntryAmount:     cfg.MaxEntryAmount,
			RejectDuplicateLeg: cfg.RejectDuplicateLeg,
		},
	})
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, auditRepo, idGen)
	ledgerUC := usecase.NewLedgerUseCase(txnRepo, ledgerRepo, cache)
	auditUC := usecase.NewAuditUseCase(auditRepo)
	reconUC := usecase.NewReconciliationUseCase(accountRepo, auditRepo)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(m.InstrumentAccounts(accountUC))
	transactionHandler := handler.NewTransactionHandler(m.InstrumentPosting(postingUC), ledgerUC)
	ledgerHandler := handler.NewLedgerHandler(ledgerUC)
	auditHandler := handler.NewAuditHandler(m.InstrumentAudit(auditUC))
	reconHandler := handler.NewReconciliationHandler(m.InstrumentReconciliation(reconUC))
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        accountHandler,
		TransactionHandler:    transactionHandler,
		LedgerHandler:         ledgerHandler,
		AuditHandler:          auditHandler,
		ReconciliationHandler: reconHandler,
		HealthHandler:         healthHandler,
		Logger:                log,
		Metrics:               m,
		MetricsHandler:        promhttp.Handler(),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
