package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/config"
	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/handler"
	"github.com/HammadCopilot/expense-tracker/internal/infra/cache"
	"github.com/HammadCopilot/expense-tracker/internal/infra/observability"
	"github.com/HammadCopilot/expense-tracker/internal/infra/resilience"
	"github.com/HammadCopilot/expense-tracker/internal/infra/supabase"
	"github.com/HammadCopilot/expense-tracker/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "expense-tracker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	categoryCache := cache.New[[]domain.Category](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Stores ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)
	blobs := supabase.NewStorage(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cfg.StorageBucket,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	expenseSvc := service.NewExpenseService(store, logger)
	analyticsSvc := service.NewAnalyticsService(store, store, logger)
	categorySvc := service.NewCategoryService(store, categoryCache, metrics, logger)
	receiptSvc := service.NewReceiptService(store, store, blobs, metrics, logger)
	authSvc := service.NewAuthService(store, store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Expenses:      expenseSvc,
		Analytics:     analyticsSvc,
		Categories:    categorySvc,
		Receipts:      receiptSvc,
		Auth:          authSvc,
		CategoryStore: store,
	}, metrics, logger)

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
