package inventory

import (
	"context"
	"errors"
)

// ModalState is the controller's active modal. Exactly one state is
// active at a time.
type ModalState string

const (
	ModalIdle        ModalState = "idle"
	ModalAddMedicine ModalState = "add_medicine"
	ModalDispense    ModalState = "dispense"
	ModalReturn      ModalState = "return"
)

// ErrModalConflict is returned when an action is not legal in the
// controller's current modal state.
var ErrModalConflict = errors.New("another modal is already open")

// ErrNoSelection is returned when dispense or return is opened without
// a selected course.
var ErrNoSelection = errors.New("no course selected")

// Controller drives one inventory page session: which patient and
// course are selected, which modal is open, and the submission flow
// for add/dispense/return. Validation failures keep the active modal
// open so the user can correct and retry; only a successful submit or
// an explicit close returns to idle.
type Controller struct {
	svc *Service

	state           ModalState
	selectedPatient string
	selectedCourse  string
}

// NewController creates an idle controller over the given service.
func NewController(svc *Service) *Controller {
	return &Controller{svc: svc, state: ModalIdle}
}

// State returns the active modal state.
func (c *Controller) State() ModalState { return c.state }

// SelectedCourse returns the selected course ID, if any.
func (c *Controller) SelectedCourse() string { return c.selectedCourse }

// SelectPatient sets the active patient and clears any course
// selection. Only legal while idle.
func (c *Controller) SelectPatient(patientID string) error {
	if c.state != ModalIdle {
		return ErrModalConflict
	}
	if _, err := c.svc.Directory().Patient(patientID); err != nil {
		return err
	}
	c.selectedPatient = patientID
	c.selectedCourse = ""
	return nil
}

// SelectCourse sets the active course. Only legal while idle.
func (c *Controller) SelectCourse(courseID string) error {
	if c.state != ModalIdle {
		return ErrModalConflict
	}
	course, err := c.svc.Directory().Course(courseID)
	if err != nil {
		return err
	}
	c.selectedPatient = course.PatientID
	c.selectedCourse = courseID
	return nil
}

// OpenAddMedicine transitions idle → add-medicine.
func (c *Controller) OpenAddMedicine() error {
	if c.state != ModalIdle {
		return ErrModalConflict
	}
	if c.selectedPatient == "" {
		return ErrNoSelection
	}
	c.state = ModalAddMedicine
	return nil
}

// OpenDispense transitions idle → dispense. Requires a selected course.
func (c *Controller) OpenDispense() error {
	if c.state != ModalIdle {
		return ErrModalConflict
	}
	if c.selectedCourse == "" {
		return ErrNoSelection
	}
	c.state = ModalDispense
	return nil
}

// OpenReturn transitions idle → return. Requires a selected course.
func (c *Controller) OpenReturn() error {
	if c.state != ModalIdle {
		return ErrModalConflict
	}
	if c.selectedCourse == "" {
		return ErrNoSelection
	}
	c.state = ModalReturn
	return nil
}

// Close cancels the active modal and returns to idle.
func (c *Controller) Close() {
	c.state = ModalIdle
}

// SubmitAddMedicine saves a new course for the selected patient and
// closes the modal. No transaction is created for the initial stock;
// the allocation is carried on the course itself.
func (c *Controller) SubmitAddMedicine(ctx context.Context, med Medication, initialStock int, status UsageStatus) (*Course, error) {
	if c.state != ModalAddMedicine {
		return nil, ErrModalConflict
	}
	course, err := c.svc.AddCourse(ctx, c.selectedPatient, med, initialStock, status)
	if err != nil {
		return nil, err
	}
	c.state = ModalIdle
	return course, nil
}

// SubmitDispense submits the dispense form for the selected course.
// On success the modal closes; on a validation failure it stays open.
func (c *Controller) SubmitDispense(ctx context.Context, quantity int, performedBy, notes string) (*Transaction, error) {
	if c.state != ModalDispense {
		return nil, ErrModalConflict
	}
	tx, err := c.svc.Dispense(ctx, DispenseRequest{
		CourseID:    c.selectedCourse,
		Quantity:    quantity,
		PerformedBy: performedBy,
		Notes:       notes,
	})
	if err != nil {
		return nil, err
	}
	c.state = ModalIdle
	return tx, nil
}

// SubmitReturn submits the return form for the selected course. On
// success the modal closes; on a validation failure it stays open.
func (c *Controller) SubmitReturn(ctx context.Context, quantity int, reason ReturnReason, performedBy, notes string) (*Transaction, error) {
	if c.state != ModalReturn {
		return nil, ErrModalConflict
	}
	tx, err := c.svc.Return(ctx, ReturnRequest{
		CourseID:    c.selectedCourse,
		Quantity:    quantity,
		Reason:      reason,
		PerformedBy: performedBy,
		Notes:       notes,
	})
	if err != nil {
		return nil, err
	}
	c.state = ModalIdle
	return tx, nil
}
