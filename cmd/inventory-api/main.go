// Package main provides the inventory API service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/api/handlers"
	"github.com/carebridge/go-wardstock/internal/api/middleware"
	"github.com/carebridge/go-wardstock/internal/config"
	"github.com/carebridge/go-wardstock/internal/domain/inventory"
	"github.com/carebridge/go-wardstock/internal/infrastructure/postgres"
	"github.com/carebridge/go-wardstock/internal/observability/metrics"
	"github.com/carebridge/go-wardstock/internal/observability/tracing"
	"github.com/carebridge/go-wardstock/pkg/idempotency"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config invalid", zap.Error(err))
	}

	ctx := context.Background()

	tracerCfg := tracing.DefaultConfig("inventory-api")
	tracerCfg.Environment = cfg.Env
	tracerCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracerCfg.SampleRate = cfg.TraceSample
	tracer, err := tracing.Init(ctx, tracerCfg)
	if err != nil {
		logger.Warn("tracing init failed, continuing without traces", zap.Error(err))
	} else {
		defer tracer.Shutdown(ctx)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database config invalid", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	logger.Info("connected to database")

	m := metrics.New()

	store := postgres.NewTransactionStore(pool, logger)
	dirStore := postgres.NewDirectoryStore(pool, logger)

	directory, err := dirStore.LoadDirectory(ctx)
	if err != nil {
		logger.Fatal("directory load failed", zap.Error(err))
	}

	ledger := inventory.NewLedger()
	history, err := store.AllTransactions(ctx)
	if err != nil {
		logger.Fatal("ledger rebuild failed", zap.Error(err))
	}
	for _, tx := range history {
		ledger.Append(tx)
	}
	logger.Info("ledger rebuilt", zap.Int("transactions", len(history)))

	svc := inventory.NewService(directory, ledger, store, logger)
	svc.SetStore(dirStore)

	gaugeCtx, cancelGauges := context.WithCancel(ctx)
	defer cancelGauges()
	go refreshStockGauges(gaugeCtx, svc, m)

	inbox := idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), logger)
	inbox.StartCleanup()
	defer inbox.Stop()

	inventoryHandler := handlers.NewInventoryHandler(svc, m, logger)
	inventoryHandler.SetInbox(inbox)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("inventory-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.BearerAuth([]byte(cfg.JWTSecret)))
		} else {
			logger.Warn("JWT_SECRET not set, API is unauthenticated")
		}
		r.Mount("/", inventoryHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting inventory API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// refreshStockGauges keeps the course census gauges current.
func refreshStockGauges(ctx context.Context, svc *inventory.Service, m *metrics.Metrics) {
	update := func() {
		total, byStatus := svc.StatusCounts()
		m.CoursesActive.Set(float64(total))
		for status, n := range byStatus {
			m.CoursesByStockStatus.WithLabelValues(string(status)).Set(float64(n))
		}
	}
	update()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"inventory-api","version":"1.0.0"}`)
}
