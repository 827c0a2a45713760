package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/service"
)

// RouterConfig carries the dependencies the router wires into handlers.
type RouterConfig struct {
	Ledger     *service.LedgerService
	Categorize *service.CategorizationService
	Scores     *service.ScoreService
	Metrics    *observability.Metrics
	JWTSecret  []byte
	DevMode    bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(cfg.Ledger, logger))
	r.Get("/readyz", readyzHandler())
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// --- API v1 (JWT protected) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(cfg.JWTSecret, logger))

		// Accounts & balances
		r.Get("/accounts", listAccountsHandler(cfg.Ledger, logger))
		r.Get("/accounts/{accountId}", getAccountHandler(cfg.Ledger, logger))
		r.Get("/accounts/{accountId}/balance", getBalanceHandler(cfg.Ledger, logger))
		r.Get("/accounts/{accountId}/transactions", listAccountTransactionsHandler(cfg.Ledger, logger))

		// Transactions & categorization
		r.Get("/transactions", listTransactionsHandler(cfg.Ledger, logger))
		r.Get("/transactions/pending", listPendingTransactionsHandler(cfg.Ledger, logger))
		r.Post("/transactions", createTransactionHandler(cfg.Ledger, logger))
		r.Put("/transactions/batch-update", batchUpdateHandler(cfg.Categorize, logger))
		// Legacy clients send the bulk purpose update as PATCH on the same path.
		r.Patch("/transactions/batch-update", bulkUpdateHandler(cfg.Categorize, logger))
		r.Patch("/transactions/{transactionId}", categorizeTransactionHandler(cfg.Categorize, logger))

		// Transfers
		r.Post("/transfers", transferHandler(cfg.Ledger, logger))

		// Scores & dashboard
		r.Get("/scores", listScoresHandler(cfg.Scores, logger))
		r.Get("/scores/latest", latestScoreHandler(cfg.Scores, logger))
		r.Post("/scores/calculate", calculateScoreHandler(cfg.Scores, logger))
		r.Get("/dashboard", dashboardHandler(cfg.Scores, logger))

		// Engine metrics snapshot
		r.Get("/metrics/engine", engineMetricsHandler(cfg.Metrics, logger))

		// Dev tools, only wired outside production
		if cfg.DevMode {
			r.Post("/dev/seed", devSeedHandler(cfg.Ledger, logger))
		}
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

type serviceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

func healthzHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []serviceHealth{
			{Name: "oshieru-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if ledger != nil {
			start := time.Now()
			_, err := ledger.ListAccounts(r.Context(), "health-check")
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, serviceHealth{
				Name:        "store",
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   overall,
			"services": services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
