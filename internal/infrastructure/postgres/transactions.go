// Package postgres provides PostgreSQL infrastructure: the durable
// insert-only transaction store and the transactional outbox used for
// reliable event publishing.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/domain/inventory"
	"github.com/carebridge/go-wardstock/internal/infrastructure/redpanda"
)

// TransactionStore persists inventory transactions. Rows are only ever
// inserted; the table is the durable copy of the audit trail. Each
// insert writes an outbox entry in the same database transaction so
// downstream consumers see exactly the committed events.
type TransactionStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewTransactionStore creates a new store.
func NewTransactionStore(pool *pgxpool.Pool, logger *zap.Logger) *TransactionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionStore{pool: pool, logger: logger}
}

// Record implements inventory.TransactionSink.
func (s *TransactionStore) Record(ctx context.Context, t *inventory.Transaction) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO inventory_transactions
		(id, course_id, patient_id, medication_id, transaction_type, quantity,
		 transaction_time, performed_by, reason, notes, stock_before, stock_after,
		 initial_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, insert,
		t.ID, t.CourseID, t.PatientID, t.MedicationID, t.Type, t.Quantity,
		t.TransactionTime, t.PerformedBy, t.Reason, t.Notes, t.StockBefore, t.StockAfter,
		t.InitialStock, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	entry := &OutboxEntry{
		AggregateID:   t.CourseID,
		AggregateType: "Course",
		EventType:     string(t.Type),
		Payload:       payload,
		KafkaTopic:    redpanda.TopicInventoryTransactions,
		KafkaKey:      t.CourseID,
	}
	if err := WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("transaction persisted",
		zap.String("transaction_id", t.ID),
		zap.String("course_id", t.CourseID))
	return nil
}

// HistoryFor reads back the transactions for one course in insertion
// order, used to rebuild a session ledger on load.
func (s *TransactionStore) HistoryFor(ctx context.Context, courseID string) ([]*inventory.Transaction, error) {
	query := `
		SELECT id, course_id, patient_id, medication_id, transaction_type, quantity,
		       transaction_time, performed_by, reason, notes, stock_before, stock_after,
		       initial_stock, created_at
		FROM inventory_transactions
		WHERE course_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*inventory.Transaction
	for rows.Next() {
		t := &inventory.Transaction{}
		err := rows.Scan(
			&t.ID, &t.CourseID, &t.PatientID, &t.MedicationID, &t.Type, &t.Quantity,
			&t.TransactionTime, &t.PerformedBy, &t.Reason, &t.Notes, &t.StockBefore, &t.StockAfter,
			&t.InitialStock, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

// AllTransactions streams the entire audit trail in insertion order,
// used to rebuild the in-memory ledger at startup.
func (s *TransactionStore) AllTransactions(ctx context.Context) ([]*inventory.Transaction, error) {
	query := `
		SELECT id, course_id, patient_id, medication_id, transaction_type, quantity,
		       transaction_time, performed_by, reason, notes, stock_before, stock_after,
		       initial_stock, created_at
		FROM inventory_transactions
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*inventory.Transaction
	for rows.Next() {
		t := &inventory.Transaction{}
		err := rows.Scan(
			&t.ID, &t.CourseID, &t.PatientID, &t.MedicationID, &t.Type, &t.Quantity,
			&t.TransactionTime, &t.PerformedBy, &t.Reason, &t.Notes, &t.StockBefore, &t.StockAfter,
			&t.InitialStock, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
