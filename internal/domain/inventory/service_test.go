package inventory

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) (*Service, *Course) {
	t.Helper()
	d := NewDirectory(testPatients())
	c, err := d.AddCourse("p1", Medication{Name: "Amoxicillin", Dose: "500mg", Unit: "cap"}, 30, UsageContinueSame)
	if err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	return NewService(d, NewLedger(), nil, nil), c
}

func TestAddCourseCreatesNoTransaction(t *testing.T) {
	svc, c := newTestService(t)

	if history, _ := svc.History(c.ID); len(history) != 0 {
		t.Fatalf("fresh course should have an empty history, got %d entries", len(history))
	}
	stock, err := svc.CurrentStock(c.ID)
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if stock != 30 {
		t.Errorf("fresh course stock = %d, want 30", stock)
	}
}

func TestDispenseRejectsOverWithdrawal(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	// Draw stock down to 5.
	if _, err := svc.Dispense(ctx, DispenseRequest{CourseID: c.ID, Quantity: 25, PerformedBy: "nurse"}); err != nil {
		t.Fatalf("setup dispense: %v", err)
	}

	before := svc.Ledger().Len()
	_, err := svc.Dispense(ctx, DispenseRequest{CourseID: c.ID, Quantity: 6, PerformedBy: "nurse"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.Ledger().Len() != before {
		t.Error("rejected dispense must leave the ledger unchanged")
	}

	tx, err := svc.Dispense(ctx, DispenseRequest{CourseID: c.ID, Quantity: 5, PerformedBy: "nurse"})
	if err != nil {
		t.Fatalf("exact-stock dispense: %v", err)
	}
	if tx.StockBefore != 5 || tx.StockAfter != 0 {
		t.Errorf("snapshots = (%d, %d), want (5, 0)", tx.StockBefore, tx.StockAfter)
	}
	if stock, _ := svc.CurrentStock(c.ID); stock != 0 {
		t.Errorf("stock after draining = %d, want 0", stock)
	}
}

func TestDispenseRejectsNonPositiveQuantity(t *testing.T) {
	svc, c := newTestService(t)
	for _, qty := range []int{0, -3} {
		if _, err := svc.Dispense(context.Background(), DispenseRequest{CourseID: c.ID, Quantity: qty}); !IsValidation(err) {
			t.Errorf("quantity %d: expected validation error, got %v", qty, err)
		}
	}
}

func TestReturnRequiresReason(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	before := svc.Ledger().Len()
	_, err := svc.Return(ctx, ReturnRequest{CourseID: c.ID, Quantity: 2, PerformedBy: "nurse"})
	if !IsValidation(err) {
		t.Fatalf("missing reason: expected validation error, got %v", err)
	}
	if _, err := svc.Return(ctx, ReturnRequest{CourseID: c.ID, Quantity: 2, Reason: "Misplaced"}); !IsValidation(err) {
		t.Fatalf("unknown reason: expected validation error, got %v", err)
	}
	if svc.Ledger().Len() != before {
		t.Error("rejected returns must leave the ledger unchanged")
	}

	tx, err := svc.Return(ctx, ReturnRequest{CourseID: c.ID, Quantity: 2, Reason: ReasonUnused, PerformedBy: "nurse"})
	if err != nil {
		t.Fatalf("valid return: %v", err)
	}
	if tx.Reason != ReasonUnused {
		t.Errorf("reason = %s, want %s", tx.Reason, ReasonUnused)
	}
}

// The return bound is the initial allocation, not net dispensed. A
// return can exceed what was actually dispensed as long as it stays
// inside the original allocation.
func TestReturnBoundIsInitialAllocation(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Return(ctx, ReturnRequest{CourseID: c.ID, Quantity: 30, Reason: ReasonOther}); err != nil {
		t.Fatalf("return at the allocation bound: %v", err)
	}
	if _, err := svc.Return(ctx, ReturnRequest{CourseID: c.ID, Quantity: 31, Reason: ReasonOther}); !IsValidation(err) {
		t.Fatalf("return above the allocation bound: expected validation error, got %v", err)
	}
}

func TestServiceUnknownCourse(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Dispense(context.Background(), DispenseRequest{CourseID: "missing", Quantity: 1}); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("dispense: got %v", err)
	}
	if _, err := svc.CurrentStock("missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("current stock: got %v", err)
	}
}

func TestSnapshotClassification(t *testing.T) {
	svc, c := newTestService(t)
	ctx := context.Background()

	snap, err := svc.Snapshot(c.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Status != StockOK || snap.CurrentStock != 30 {
		t.Errorf("fresh course: got %s at %d", snap.Status, snap.CurrentStock)
	}

	if _, err := svc.Dispense(ctx, DispenseRequest{CourseID: c.ID, Quantity: 16}); err != nil {
		t.Fatalf("dispense: %v", err)
	}
	snap, _ = svc.Snapshot(c.ID)
	if snap.Status != StockCritical {
		t.Errorf("14/30 remaining should be CRITICAL, got %s", snap.Status)
	}
}

func TestStatusCountsCensus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d := svc.Directory()
	low, _ := d.AddCourse("p1", Medication{Name: "Paracetamol"}, 10, UsageContinueSame)
	d.AddCourse("p1", Medication{Name: "Ibuprofen"}, 0, UsageContinueSame)

	// Draw the second course to 6/10 (LOW); the helper's course stays
	// fresh (OK), the zero-allocation course classifies OUT_OF_STOCK.
	if _, err := svc.Dispense(ctx, DispenseRequest{CourseID: low.ID, Quantity: 4}); err != nil {
		t.Fatalf("dispense: %v", err)
	}

	total, byStatus := svc.StatusCounts()
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	want := map[StockStatus]int{
		StockOK:         1,
		StockLow:        1,
		StockCritical:   0,
		StockOutOfStock: 1,
	}
	for status, n := range want {
		if byStatus[status] != n {
			t.Errorf("%s = %d, want %d", status, byStatus[status], n)
		}
	}
	if len(byStatus) != 4 {
		t.Errorf("census must carry all statuses, got %d", len(byStatus))
	}
}

type recordingStore struct {
	patients []Patient
}

func (r *recordingStore) SavePatient(_ context.Context, p Patient) error {
	r.patients = append(r.patients, p)
	return nil
}
func (r *recordingStore) SaveCourse(context.Context, *Course) error   { return nil }
func (r *recordingStore) UpdateCourse(context.Context, *Course) error { return nil }
func (r *recordingStore) DeleteCourse(context.Context, string) error  { return nil }

func TestAddPatientPersists(t *testing.T) {
	d := NewDirectory(nil)
	svc := NewService(d, NewLedger(), nil, nil)
	store := &recordingStore{}
	svc.SetStore(store)

	p, err := svc.AddPatient(context.Background(), Patient{FirstName: "Ada", LastName: "Okafor", Ward: "B", Room: "202"})
	if err != nil {
		t.Fatalf("AddPatient: %v", err)
	}
	if p.ID == "" {
		t.Error("admitted patient should get a generated ID")
	}
	if len(store.patients) != 1 || store.patients[0].ID != p.ID {
		t.Errorf("store should hold the admitted patient, got %+v", store.patients)
	}
	if _, err := d.Patient(p.ID); err != nil {
		t.Errorf("directory lookup after admission: %v", err)
	}
}

type failingSink struct{ err error }

func (f *failingSink) Record(context.Context, *Transaction) error { return f.err }

func TestSinkFailureStillAppends(t *testing.T) {
	d := NewDirectory(testPatients())
	c, _ := d.AddCourse("p1", Medication{Name: "X"}, 10, UsageContinueSame)
	sinkErr := errors.New("db down")
	svc := NewService(d, NewLedger(), &failingSink{err: sinkErr}, nil)

	_, err := svc.Dispense(context.Background(), DispenseRequest{CourseID: c.ID, Quantity: 1})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error surfaced, got %v", err)
	}
	// The session ledger stays authoritative even when persistence fails.
	if svc.Ledger().Len() != 1 {
		t.Errorf("ledger length = %d, want 1", svc.Ledger().Len())
	}
}
