// Package main provides the ledger relay service entry point. It
// drains the transactional outbox into Redpanda.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/config"
	"github.com/carebridge/go-wardstock/internal/infrastructure/postgres"
	"github.com/carebridge/go-wardstock/internal/infrastructure/redpanda"
	"github.com/carebridge/go-wardstock/internal/observability/metrics"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database config invalid", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	logger.Info("connected to database")

	m := metrics.New()

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers

	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()
	producer.SetProducedHook(m.KafkaMessagesProduced.Inc)

	logger.Info("connected to Redpanda", zap.Strings("brokers", cfg.KafkaBrokers))

	// Make sure the topics exist before relaying into them.
	admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(context.Background()); err != nil {
		logger.Warn("topic creation failed", zap.Error(err))
	}
	admin.Close()

	outbox := postgres.NewOutbox(pool, &producerAdapter{producer}, postgres.DefaultOutboxConfig(), logger)

	outbox.Start()
	logger.Info("ledger relay started")

	maintCtx, cancelMaint := context.WithCancel(context.Background())
	go maintenanceLoop(maintCtx, outbox, m, logger)
	go serveMetrics(cfg.Port, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	cancelMaint()

	logger.Info("shutting down")
	outbox.Stop()
	logger.Info("ledger relay stopped")
}

// maintenanceLoop periodically moves exhausted entries to the
// dead-letter topic, prunes processed rows and refreshes the backlog
// gauge.
func maintenanceLoop(ctx context.Context, outbox *postgres.Outbox, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats, err := outbox.GetStats(ctx); err != nil {
				logger.Error("outbox stats failed", zap.Error(err))
			} else {
				m.OutboxPending.Set(float64(stats.Pending))
			}

			if n, err := outbox.MoveToDeadLetter(ctx); err != nil {
				logger.Error("dead letter sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Warn("entries moved to dead letter", zap.Int64("count", n))
			}

			if n, err := outbox.CleanupProcessed(ctx, 24*time.Hour); err != nil {
				logger.Error("outbox cleanup failed", zap.Error(err))
			} else if n > 0 {
				logger.Debug("processed entries pruned", zap.Int64("count", n))
			}
		}
	}
}

// serveMetrics exposes the Prometheus endpoint and a liveness probe.
func serveMetrics(port string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

// producerAdapter adapts the Redpanda producer to the OutboxPublisher
// interface.
type producerAdapter struct {
	producer *redpanda.Producer
}

func (a *producerAdapter) Publish(ctx context.Context, topic, key string, value []byte) error {
	return a.producer.ProduceMessage(ctx, topic, key, value)
}
