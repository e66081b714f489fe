// Package inventory implements the ward medication inventory domain:
// patients, prescribed courses, and the append-only transaction ledger
// from which on-hand stock is derived.
package inventory

import "time"

// UsageStatus is the clinical-use flag on a course. It is independent
// of stock status and settable at creation or edit time.
type UsageStatus string

const (
	UsageContinueSame      UsageStatus = "continue_same"
	UsageContinueDifferent UsageStatus = "continue_different"
	UsageTemporarilyStop   UsageStatus = "temporarily_stop"
	UsageDiscontinued      UsageStatus = "discontinued"
)

// Valid reports whether s is one of the enumerated usage statuses.
func (s UsageStatus) Valid() bool {
	switch s {
	case UsageContinueSame, UsageContinueDifferent, UsageTemporarilyStop, UsageDiscontinued:
		return true
	}
	return false
}

// Patient represents a patient record supplied by the admission system.
// Read-only in this service.
type Patient struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Ward      string `json:"ward"`
	Room      string `json:"room"`
	HN        string `json:"hn"`
}

// DisplayName returns the patient's combined name.
func (p Patient) DisplayName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Medication is a catalog descriptor. Each course carries its own copy
// of these fields rather than referencing a shared catalog entry.
type Medication struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Dose         string `json:"dose"`
	Unit         string `json:"unit"`
	Route        string `json:"route,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
	LotNumber    string `json:"lot_number,omitempty"`
}

// Course represents one prescribed course of one medication for one
// patient. It is the aggregate root for stock tracking: InitialStock
// is set once at creation and never changes; on-hand stock is always
// derived by replaying the course's transactions.
type Course struct {
	ID           string      `json:"id"`
	PatientID    string      `json:"patient_id"`
	Medication   Medication  `json:"medication"`
	InitialStock int         `json:"initial_stock"`
	Status       UsageStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
