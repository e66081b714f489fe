package inventory

import "sync"

// Ledger holds the append-only sequence of transactions for every
// course loaded into the session. Nothing is ever edited or removed
// through this type, which keeps the audit trail tamper-proof from
// the caller's side. Validation is the caller's responsibility.
type Ledger struct {
	mu      sync.RWMutex
	entries []*Transaction
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds one transaction in insertion order.
func (l *Ledger) Append(tx *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, tx)
}

// HistoryFor returns the transactions for one course in insertion
// order. The result is a snapshot of current state, not a live view.
func (l *Ledger) HistoryFor(courseID string) []*Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var history []*Transaction
	for _, tx := range l.entries {
		if tx.CourseID == courseID {
			history = append(history, tx)
		}
	}
	return history
}

// Len returns the total number of transactions in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// ReplayStock folds a transaction history into the current on-hand
// quantity: initial − Σ dispensed + Σ returned. The result is clamped
// at zero as a defensive floor; an append-time-validated history never
// triggers the clamp.
func ReplayStock(initial int, history []*Transaction) int {
	stock := initial
	for _, tx := range history {
		switch tx.Type {
		case TransactionDispense:
			stock -= tx.Quantity
		case TransactionReturn:
			stock += tx.Quantity
		}
	}
	if stock < 0 {
		return 0
	}
	return stock
}
