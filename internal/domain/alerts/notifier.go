package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/pkg/circuitbreaker"
)

// Notifier delivers alerts to the nursing-station webhook. Delivery
// goes through a circuit breaker so a dead endpoint does not stall
// the consumer.
type Notifier struct {
	url     string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewNotifier creates a notifier for the given webhook URL.
func NewNotifier(url string, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		url:     url,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		logger:  logger,
	}
}

// Notify posts one alert. Non-2xx responses count as failures toward
// the breaker.
func (n *Notifier) Notify(ctx context.Context, alert *Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = n.breaker.Execute(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	n.logger.Info("alert delivered",
		zap.String("alert_id", alert.ID),
		zap.String("course_id", alert.CourseID),
		zap.String("severity", string(alert.Severity)))
	return nil
}
