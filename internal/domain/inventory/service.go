package inventory

import (
	"context"

	"go.uber.org/zap"
)

// TransactionSink receives each appended transaction for durable
// persistence and downstream publication. The in-memory ledger stays
// authoritative for the session; a sink failure rolls nothing back
// but is reported to the caller.
type TransactionSink interface {
	Record(ctx context.Context, tx *Transaction) error
}

// DirectoryWriter receives directory mutations for durable
// persistence. Like the transaction sink, the in-memory directory
// stays authoritative for the session.
type DirectoryWriter interface {
	SavePatient(ctx context.Context, p Patient) error
	SaveCourse(ctx context.Context, c *Course) error
	UpdateCourse(ctx context.Context, c *Course) error
	DeleteCourse(ctx context.Context, id string) error
}

// DispenseRequest describes a dispense submission.
type DispenseRequest struct {
	CourseID    string
	Quantity    int
	PerformedBy string
	Notes       string
}

// ReturnRequest describes a return submission.
type ReturnRequest struct {
	CourseID    string
	Quantity    int
	Reason      ReturnReason
	PerformedBy string
	Notes       string
}

// CourseSnapshot is the per-course view handed to the UI: the course
// plus its derived stock and severity classification.
type CourseSnapshot struct {
	Course       *Course     `json:"course"`
	CurrentStock int         `json:"current_stock"`
	Status       StockStatus `json:"stock_status"`
}

// Service orchestrates the directory and the ledger: it validates
// submissions, snapshots stock-before/after, appends transactions and
// forwards them to the configured sink.
type Service struct {
	dir    *Directory
	ledger *Ledger
	sink   TransactionSink
	store  DirectoryWriter
	logger *zap.Logger
}

// NewService creates a service. sink may be nil for purely in-memory
// sessions.
func NewService(dir *Directory, ledger *Ledger, sink TransactionSink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{dir: dir, ledger: ledger, sink: sink, logger: logger}
}

// SetStore attaches durable directory persistence. Without a store
// patient and course changes live only in memory.
func (s *Service) SetStore(w DirectoryWriter) { s.store = w }

// Directory returns the underlying patient/course directory.
func (s *Service) Directory() *Directory { return s.dir }

// Ledger returns the underlying transaction ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

// AddPatient admits a patient and persists the record when a store is
// attached.
func (s *Service) AddPatient(ctx context.Context, p Patient) (Patient, error) {
	p = s.dir.AddPatient(p)
	if s.store != nil {
		if err := s.store.SavePatient(ctx, p); err != nil {
			s.logger.Error("patient store save failed",
				zap.String("patient_id", p.ID),
				zap.Error(err))
			return p, err
		}
	}
	return p, nil
}

// AddCourse registers a course and persists it when a store is
// attached. No transaction is recorded for the initial allocation.
func (s *Service) AddCourse(ctx context.Context, patientID string, med Medication, initialStock int, status UsageStatus) (*Course, error) {
	c, err := s.dir.AddCourse(patientID, med, initialStock, status)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.SaveCourse(ctx, c); err != nil {
			s.logger.Error("course store save failed",
				zap.String("course_id", c.ID),
				zap.Error(err))
			return c, err
		}
	}
	return c, nil
}

// UpdateCourse edits a course's medication details and usage status.
// The initial allocation is never touched.
func (s *Service) UpdateCourse(ctx context.Context, id string, med Medication, status UsageStatus) (*Course, error) {
	c, err := s.dir.UpdateCourse(id, med, status)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.UpdateCourse(ctx, c); err != nil {
			s.logger.Error("course store update failed",
				zap.String("course_id", c.ID),
				zap.Error(err))
			return c, err
		}
	}
	return c, nil
}

// RemoveCourse deletes a course. Its recorded transactions remain.
func (s *Service) RemoveCourse(ctx context.Context, id string) error {
	if err := s.dir.RemoveCourse(id); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.DeleteCourse(ctx, id); err != nil {
			s.logger.Error("course store delete failed",
				zap.String("course_id", id),
				zap.Error(err))
			return err
		}
	}
	return nil
}

// CurrentStock derives the on-hand quantity for one course by
// replaying its transaction history.
func (s *Service) CurrentStock(courseID string) (int, error) {
	c, err := s.dir.Course(courseID)
	if err != nil {
		return 0, err
	}
	return ReplayStock(c.InitialStock, s.ledger.HistoryFor(courseID)), nil
}

// Snapshot returns the course with its derived stock and status.
func (s *Service) Snapshot(courseID string) (*CourseSnapshot, error) {
	c, err := s.dir.Course(courseID)
	if err != nil {
		return nil, err
	}
	current := ReplayStock(c.InitialStock, s.ledger.HistoryFor(courseID))
	return &CourseSnapshot{
		Course:       c,
		CurrentStock: current,
		Status:       Classify(current, c.InitialStock),
	}, nil
}

// SnapshotsFor returns snapshots for every course of one patient, in
// the order the courses were added.
func (s *Service) SnapshotsFor(patientID string) []*CourseSnapshot {
	courses := s.dir.CoursesFor(patientID)
	out := make([]*CourseSnapshot, 0, len(courses))
	for _, c := range courses {
		current := ReplayStock(c.InitialStock, s.ledger.HistoryFor(c.ID))
		out = append(out, &CourseSnapshot{
			Course:       c,
			CurrentStock: current,
			Status:       Classify(current, c.InitialStock),
		})
	}
	return out
}

// StatusCounts tallies tracked courses per derived stock status. Every
// status appears in the map, zero or not, so gauge consumers can reset
// levels that emptied out.
func (s *Service) StatusCounts() (int, map[StockStatus]int) {
	counts := map[StockStatus]int{
		StockOK:         0,
		StockLow:        0,
		StockCritical:   0,
		StockOutOfStock: 0,
	}
	courses := s.dir.Courses()
	for _, c := range courses {
		current := ReplayStock(c.InitialStock, s.ledger.HistoryFor(c.ID))
		counts[Classify(current, c.InitialStock)]++
	}
	return len(courses), counts
}

// History returns the audit trail for one course.
func (s *Service) History(courseID string) ([]*Transaction, error) {
	if _, err := s.dir.Course(courseID); err != nil {
		return nil, err
	}
	return s.ledger.HistoryFor(courseID), nil
}

// Dispense validates and appends a DISPENSE transaction. The quantity
// must be positive and must not exceed the currently derived stock.
func (s *Service) Dispense(ctx context.Context, req DispenseRequest) (*Transaction, error) {
	c, err := s.dir.Course(req.CourseID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "must be greater than zero"}
	}
	current := ReplayStock(c.InitialStock, s.ledger.HistoryFor(c.ID))
	if req.Quantity > current {
		return nil, &ValidationError{Field: "quantity", Message: "exceeds current stock"}
	}

	tx := newTransaction(c, TransactionDispense, req.Quantity, req.PerformedBy, req.Notes)
	tx.StockBefore = current
	tx.StockAfter = current - req.Quantity
	return s.commit(ctx, tx)
}

// Return validates and appends a RETURN transaction. The quantity must
// be positive, must not exceed the course's initial allocation, and a
// reason code is required. The bound is deliberately the initial
// allocation rather than net-dispensed-to-date; see DESIGN.md.
func (s *Service) Return(ctx context.Context, req ReturnRequest) (*Transaction, error) {
	c, err := s.dir.Course(req.CourseID)
	if err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "must be greater than zero"}
	}
	if req.Quantity > c.InitialStock {
		return nil, &ValidationError{Field: "quantity", Message: "exceeds initial allocation"}
	}
	if req.Reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "reason is required"}
	}
	if !req.Reason.Valid() {
		return nil, &ValidationError{Field: "reason", Message: "unknown reason code"}
	}

	current := ReplayStock(c.InitialStock, s.ledger.HistoryFor(c.ID))
	tx := newTransaction(c, TransactionReturn, req.Quantity, req.PerformedBy, req.Notes)
	tx.Reason = req.Reason
	tx.StockBefore = current
	tx.StockAfter = current + req.Quantity
	return s.commit(ctx, tx)
}

func (s *Service) commit(ctx context.Context, tx *Transaction) (*Transaction, error) {
	s.ledger.Append(tx)
	if s.sink != nil {
		if err := s.sink.Record(ctx, tx); err != nil {
			s.logger.Error("transaction sink failed",
				zap.String("transaction_id", tx.ID),
				zap.String("course_id", tx.CourseID),
				zap.Error(err))
			return tx, err
		}
	}
	s.logger.Info("transaction recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("course_id", tx.CourseID),
		zap.String("type", string(tx.Type)),
		zap.Int("quantity", tx.Quantity),
		zap.Int("stock_after", tx.StockAfter))
	return tx, nil
}
