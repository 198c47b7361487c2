package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vaultline/ledgerd/internal/adapter/http/handler"
	"github.com/vaultline/ledgerd/internal/adapter/http/middleware"
	"github.com/vaultline/ledgerd/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	TransactionHandler    *handler.TransactionHandler
	LedgerHandler         *handler.LedgerHandler
	AuditHandler          *handler.AuditHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler
	Logger                zerolog.Logger
	Metrics               *metrics.Metrics
	MetricsHandler        http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.NewRecovery(cfg.Logger).Wrap)

	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/balance", cfg.AccountHandler.GetBalance)
			r.Get("/{id}/entries", cfg.LedgerHandler.ListEntriesByAccount)
			r.Post("/{id}/freeze", cfg.AccountHandler.Freeze)
			r.Post("/{id}/close", cfg.AccountHandler.Close)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", cfg.TransactionHandler.Create)
			r.Get("/{id}", cfg.TransactionHandler.Get)
		})

		// Audit log
		r.Route("/audit", func(r chi.Router) {
			r.Get("/records", cfg.AuditHandler.List)
			r.Get("/verify", cfg.AuditHandler.VerifyChain)
		})

		// Ledger-wide checks
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)

		// Reconciliation
		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/run", cfg.ReconciliationHandler.Run)
			r.Get("/report", cfg.ReconciliationHandler.Run)
			r.Get("/accounts/{id}", cfg.ReconciliationHandler.RunAccount)
			r.Get("/accounts/{id}/balance", cfg.ReconciliationHandler.BalanceHistory)
		})
	})

	return r
}
