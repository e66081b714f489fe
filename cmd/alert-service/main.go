// Package main provides the alert service entry point. It consumes
// inventory transaction events, classifies the resulting stock level
// and notifies the nursing station when a course crosses a threshold.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/config"
	"github.com/carebridge/go-wardstock/internal/domain/alerts"
	"github.com/carebridge/go-wardstock/internal/domain/inventory"
	"github.com/carebridge/go-wardstock/internal/infrastructure/redpanda"
	"github.com/carebridge/go-wardstock/internal/observability/metrics"
	"github.com/carebridge/go-wardstock/pkg/circuitbreaker"
	"github.com/carebridge/go-wardstock/pkg/workerpool"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if cfg.AlertWebhookURL == "" {
		logger.Fatal("ALERT_WEBHOOK_URL is required")
	}

	m := metrics.New()

	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("alert-webhook"), logger)
	if err != nil {
		logger.Fatal("circuit breaker creation failed", zap.Error(err))
	}

	evaluator := alerts.NewEvaluator()
	notifier := alerts.NewNotifier(cfg.AlertWebhookURL, breaker, logger)

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()
	producer.SetProducedHook(m.KafkaMessagesProduced.Inc)

	poolCfg := workerpool.DefaultConfig()
	poolCfg.Workers = cfg.AlertWorkers

	pool, err := workerpool.New(poolCfg, func(ctx context.Context, task *workerpool.Task) *workerpool.Result {
		return dispatchAlert(ctx, task, notifier, producer, m, logger)
	}, logger)
	if err != nil {
		logger.Fatal("worker pool creation failed", zap.Error(err))
	}

	pool.Start()
	defer pool.Stop()

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers
	consumerCfg.GroupID = cfg.KafkaConsumerGroup
	consumerCfg.Topics = []string{redpanda.TopicInventoryTransactions}

	consumer, err := redpanda.NewConsumer(consumerCfg, func(ctx context.Context, msg *redpanda.ConsumedMessage) error {
		var tx inventory.Transaction
		if err := json.Unmarshal(msg.Value, &tx); err != nil {
			// A malformed event will never parse; log and move on.
			logger.Error("malformed transaction event",
				zap.String("key", string(msg.Key)),
				zap.Error(err))
			return nil
		}

		alert, fire := evaluator.Evaluate(&tx)
		if !fire {
			return nil
		}

		return pool.Submit(&workerpool.Task{
			ID:      alert.ID,
			Payload: alert,
			Context: ctx,
		})
	}, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}
	consumer.SetConsumedHook(m.KafkaMessagesConsumed.Inc)

	consumer.Start()
	go serveMetrics(cfg.Port, logger)
	logger.Info("alert service started",
		zap.Int("workers", cfg.AlertWorkers),
		zap.String("consumer_group", cfg.KafkaConsumerGroup),
		zap.String("webhook", cfg.AlertWebhookURL))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	consumer.Stop()
	logger.Info("alert service stopped")
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

// dispatchAlert delivers one alert to the webhook and mirrors it onto
// the stock.alerts topic for other consumers.
func dispatchAlert(ctx context.Context, task *workerpool.Task, notifier *alerts.Notifier, producer *redpanda.Producer, m *metrics.Metrics, logger *zap.Logger) *workerpool.Result {
	alert, ok := task.Payload.(*alerts.Alert)
	if !ok {
		return &workerpool.Result{TaskID: task.ID, Success: false}
	}

	if err := notifier.Notify(ctx, alert); err != nil {
		m.AlertsFailed.Inc()
		return &workerpool.Result{TaskID: task.ID, Success: false, Error: err}
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return &workerpool.Result{TaskID: task.ID, Success: false, Error: err}
	}
	if err := producer.ProduceMessage(ctx, redpanda.TopicStockAlerts, alert.CourseID, payload); err != nil {
		logger.Warn("alert topic publish failed",
			zap.String("alert_id", alert.ID),
			zap.Error(err))
	}

	m.AlertsDispatched.Inc()
	return &workerpool.Result{TaskID: task.ID, Success: true}
}
