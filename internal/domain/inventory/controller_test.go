package inventory

import (
	"context"
	"errors"
	"testing"
)

func newTestController(t *testing.T) (*Controller, *Course) {
	t.Helper()
	svc, c := newTestService(t)
	return NewController(svc), c
}

func TestControllerRequiresSelectionForDispense(t *testing.T) {
	ctrl, _ := newTestController(t)

	if err := ctrl.OpenDispense(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("dispense without selection: got %v", err)
	}
	if err := ctrl.OpenReturn(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("return without selection: got %v", err)
	}
	if ctrl.State() != ModalIdle {
		t.Errorf("controller should stay idle, state = %s", ctrl.State())
	}
}

func TestControllerSingleActiveModal(t *testing.T) {
	ctrl, c := newTestController(t)
	if err := ctrl.SelectCourse(c.ID); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	if err := ctrl.OpenDispense(); err != nil {
		t.Fatalf("OpenDispense: %v", err)
	}
	if err := ctrl.OpenReturn(); !errors.Is(err, ErrModalConflict) {
		t.Errorf("second modal: got %v", err)
	}
	if err := ctrl.OpenAddMedicine(); !errors.Is(err, ErrModalConflict) {
		t.Errorf("add while dispensing: got %v", err)
	}
	ctrl.Close()
	if ctrl.State() != ModalIdle {
		t.Errorf("close should return to idle, state = %s", ctrl.State())
	}
}

func TestControllerDispenseFailureKeepsModalOpen(t *testing.T) {
	ctrl, c := newTestController(t)
	ctx := context.Background()

	if err := ctrl.SelectCourse(c.ID); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	if err := ctrl.OpenDispense(); err != nil {
		t.Fatalf("OpenDispense: %v", err)
	}

	if _, err := ctrl.SubmitDispense(ctx, 99, "nurse", ""); !IsValidation(err) {
		t.Fatalf("over-withdrawal: expected validation error, got %v", err)
	}
	if ctrl.State() != ModalDispense {
		t.Errorf("failed submit must keep the modal open, state = %s", ctrl.State())
	}

	if _, err := ctrl.SubmitDispense(ctx, 5, "nurse", ""); err != nil {
		t.Fatalf("valid submit: %v", err)
	}
	if ctrl.State() != ModalIdle {
		t.Errorf("successful submit should close the modal, state = %s", ctrl.State())
	}
}

func TestControllerReturnFlow(t *testing.T) {
	ctrl, c := newTestController(t)
	ctx := context.Background()

	if err := ctrl.SelectCourse(c.ID); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	if err := ctrl.OpenReturn(); err != nil {
		t.Fatalf("OpenReturn: %v", err)
	}

	if _, err := ctrl.SubmitReturn(ctx, 2, "", "nurse", ""); !IsValidation(err) {
		t.Fatalf("missing reason: got %v", err)
	}
	if ctrl.State() != ModalReturn {
		t.Errorf("failed submit must keep the modal open, state = %s", ctrl.State())
	}

	if _, err := ctrl.SubmitReturn(ctx, 2, ReasonDamage, "nurse", ""); err != nil {
		t.Fatalf("valid return: %v", err)
	}
	if ctrl.State() != ModalIdle {
		t.Errorf("state = %s, want idle", ctrl.State())
	}
}

func TestControllerAddMedicineFlow(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctx := context.Background()

	if err := ctrl.SelectPatient("p2"); err != nil {
		t.Fatalf("SelectPatient: %v", err)
	}
	if err := ctrl.OpenAddMedicine(); err != nil {
		t.Fatalf("OpenAddMedicine: %v", err)
	}
	course, err := ctrl.SubmitAddMedicine(ctx, Medication{Name: "Paracetamol"}, 20, UsageContinueSame)
	if err != nil {
		t.Fatalf("SubmitAddMedicine: %v", err)
	}
	if course.PatientID != "p2" {
		t.Errorf("course bound to %s, want p2", course.PatientID)
	}
	if ctrl.State() != ModalIdle {
		t.Errorf("state = %s, want idle", ctrl.State())
	}
}
