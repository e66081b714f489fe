package inventory

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of stock movement.
type TransactionType string

const (
	// TransactionDispense decreases derived stock.
	TransactionDispense TransactionType = "DISPENSE"
	// TransactionReturn increases derived stock.
	TransactionReturn TransactionType = "RETURN"
)

// ReturnReason is the required reason code on a RETURN transaction.
type ReturnReason string

const (
	ReasonUnused         ReturnReason = "Unused"
	ReasonPatientRequest ReturnReason = "PatientRequest"
	ReasonExpiry         ReturnReason = "Expiry"
	ReasonDamage         ReturnReason = "Damage"
	ReasonOther          ReturnReason = "Other"
)

// Valid reports whether r is one of the enumerated return reasons.
func (r ReturnReason) Valid() bool {
	switch r {
	case ReasonUnused, ReasonPatientRequest, ReasonExpiry, ReasonDamage, ReasonOther:
		return true
	}
	return false
}

// Transaction is an immutable stock movement against one course. Once
// appended to the ledger it is never edited or deleted; the sequence
// of transactions is the audit trail and the source of truth for
// derived stock. StockBefore and StockAfter are snapshotted at append
// time for audit display only.
type Transaction struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"course_id"`
	PatientID       string          `json:"patient_id"`
	MedicationID    string          `json:"medication_id"`
	Type            TransactionType `json:"type"`
	Quantity        int             `json:"quantity"`
	TransactionTime time.Time       `json:"transaction_time"`
	PerformedBy     string          `json:"performed_by"`
	Reason          ReturnReason    `json:"reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	StockBefore     int             `json:"stock_before"`
	StockAfter      int             `json:"stock_after"`
	// InitialStock is copied from the course so consumers can classify
	// stock levels without a course lookup.
	InitialStock int       `json:"initial_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

// newTransaction builds the common envelope for a dispense or return.
func newTransaction(c *Course, txType TransactionType, quantity int, performedBy, notes string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:              uuid.New().String(),
		CourseID:        c.ID,
		PatientID:       c.PatientID,
		MedicationID:    c.Medication.ID,
		Type:            txType,
		Quantity:        quantity,
		TransactionTime: now,
		PerformedBy:     performedBy,
		Notes:           notes,
		InitialStock:    c.InitialStock,
		CreatedAt:       now,
	}
}
