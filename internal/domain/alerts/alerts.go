// Package alerts turns inventory transaction events into stock-level
// alerts for the nursing station.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/go-wardstock/internal/domain/inventory"
)

// Severity orders alert urgency. It tracks the stock status levels
// below OK.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityCritical Severity = "CRITICAL"
	SeverityOut      Severity = "OUT_OF_STOCK"
)

// Alert is one notification about a course whose stock level crossed
// a threshold.
type Alert struct {
	ID           string                `json:"id"`
	CourseID     string                `json:"course_id"`
	PatientID    string                `json:"patient_id"`
	MedicationID string                `json:"medication_id"`
	Severity     Severity              `json:"severity"`
	Status       inventory.StockStatus `json:"status"`
	CurrentStock int                   `json:"current_stock"`
	InitialStock int                   `json:"initial_stock"`
	TriggeredBy  string                `json:"triggered_by"`
	CreatedAt    time.Time             `json:"created_at"`
}

// severityFor maps a stock status to an alert severity. OK carries no
// severity and produces no alert.
func severityFor(status inventory.StockStatus) (Severity, bool) {
	switch status {
	case inventory.StockLow:
		return SeverityLow, true
	case inventory.StockCritical:
		return SeverityCritical, true
	case inventory.StockOutOfStock:
		return SeverityOut, true
	}
	return "", false
}

// Evaluator decides which transactions warrant an alert. It remembers
// the last status seen per course so only downward crossings alert,
// not every dispense while a course sits at LOW.
type Evaluator struct {
	mu   sync.Mutex
	last map[string]inventory.StockStatus
}

// NewEvaluator creates an evaluator with no remembered state.
func NewEvaluator() *Evaluator {
	return &Evaluator{last: make(map[string]inventory.StockStatus)}
}

// Evaluate classifies the post-transaction stock level and returns an
// alert when the status worsened. Returns coming back above a
// threshold reset the remembered status so a later drop alerts again.
func (e *Evaluator) Evaluate(t *inventory.Transaction) (*Alert, bool) {
	status := inventory.Classify(t.StockAfter, t.InitialStock)

	e.mu.Lock()
	prev, seen := e.last[t.CourseID]
	e.last[t.CourseID] = status
	e.mu.Unlock()

	severity, alertable := severityFor(status)
	if !alertable {
		return nil, false
	}
	if seen && !worseThan(status, prev) {
		return nil, false
	}

	return &Alert{
		ID:           uuid.New().String(),
		CourseID:     t.CourseID,
		PatientID:    t.PatientID,
		MedicationID: t.MedicationID,
		Severity:     severity,
		Status:       status,
		CurrentStock: t.StockAfter,
		InitialStock: t.InitialStock,
		TriggeredBy:  t.ID,
		CreatedAt:    time.Now().UTC(),
	}, true
}

var statusRank = map[inventory.StockStatus]int{
	inventory.StockOK:         0,
	inventory.StockLow:        1,
	inventory.StockCritical:   2,
	inventory.StockOutOfStock: 3,
}

func worseThan(a, b inventory.StockStatus) bool {
	return statusRank[a] > statusRank[b]
}
