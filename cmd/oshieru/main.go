package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oshieru/oshieru-go/internal/config"
	"github.com/oshieru/oshieru-go/internal/domain"
	"github.com/oshieru/oshieru-go/internal/handler"
	"github.com/oshieru/oshieru-go/internal/infra/cache"
	"github.com/oshieru/oshieru-go/internal/infra/memory"
	"github.com/oshieru/oshieru-go/internal/infra/observability"
	"github.com/oshieru/oshieru-go/internal/infra/resilience"
	"github.com/oshieru/oshieru-go/internal/infra/supabase"
	"github.com/oshieru/oshieru-go/internal/port"
	"github.com/oshieru/oshieru-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Bool("dev_mode", cfg.DevMode),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(context.Background(), cfg.OTLPEndpoint, "oshieru-engine")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	scoreCache := cache.New[*domain.Score](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Stores ---
	var ledgerStore port.LedgerStore
	var scoreStore port.ScoreStore

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		supabaseClient := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			metrics,
			logger,
		)
		ledgerStore = supabaseClient
		scoreStore = supabaseClient
	} else {
		if !cfg.DevMode {
			logger.Fatal("Supabase not configured and DEV_MODE is off")
		}
		logger.Warn("using in-memory store, data will not survive restarts")
		memStore := memory.NewStore()
		ledgerStore = memStore
		scoreStore = memStore
	}

	// --- Services ---
	ledgerSvc := service.NewLedgerService(ledgerStore, metrics, logger)
	categorizeSvc := service.NewCategorizationService(ledgerStore, ledgerSvc, metrics, logger)
	scoreSvc := service.NewScoreService(ledgerStore, scoreStore, scoreCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.RouterConfig{
		Ledger:     ledgerSvc,
		Categorize: categorizeSvc,
		Scores:     scoreSvc,
		Metrics:    metrics,
		JWTSecret:  []byte(cfg.JWTSecret),
		DevMode:    cfg.DevMode,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
