// Package metrics provides Prometheus metrics for the inventory service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	TransactionsRecorded  *prometheus.CounterVec
	ValidationFailures    *prometheus.CounterVec
	CoursesActive         prometheus.Gauge
	CoursesByStockStatus  *prometheus.GaugeVec
	SubmissionDuration    prometheus.Histogram
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	OutboxPending         prometheus.Gauge
	AlertsDispatched      prometheus.Counter
	AlertsFailed          prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		TransactionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_transactions_total",
			Help: "Total recorded stock transactions",
		}, []string{"type"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_validation_failures_total",
			Help: "Total rejected dispense/return submissions",
		}, []string{"field"}),
		CoursesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_courses_active",
			Help: "Currently tracked medication courses",
		}),
		CoursesByStockStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_courses_by_stock_status",
			Help: "Courses per derived stock status",
		}, []string{"status"}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_submission_duration_seconds",
			Help:    "Dispense/return submission processing duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		AlertsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_alerts_dispatched_total",
			Help: "Total low-stock alerts dispatched",
		}),
		AlertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_alerts_failed_total",
			Help: "Total low-stock alert deliveries that failed",
		}),
	}

	prometheus.MustRegister(
		m.TransactionsRecorded,
		m.ValidationFailures,
		m.CoursesActive,
		m.CoursesByStockStatus,
		m.SubmissionDuration,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.AlertsDispatched,
		m.AlertsFailed,
	)

	return m
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
