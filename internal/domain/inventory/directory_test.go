package inventory

import (
	"errors"
	"testing"
)

func testPatients() []Patient {
	return []Patient{
		{ID: "p1", FirstName: "John", LastName: "Smith", Ward: "A", Room: "101", HN: "HN001"},
		{ID: "p2", FirstName: "Jane", LastName: "Smith", Ward: "A", Room: "102", HN: "HN002"},
		{ID: "p3", FirstName: "Alice", LastName: "Brown", Ward: "B", Room: "101", HN: "HN003"},
	}
}

func TestPatientFilterConjunction(t *testing.T) {
	d := NewDirectory(testPatients())

	got := d.Patients(PatientFilter{Ward: "A", Room: "101"})
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("ward=A room=101: got %v", got)
	}

	got = d.Patients(PatientFilter{Search: "Smith"})
	if len(got) != 2 {
		t.Fatalf("search=Smith: expected 2 patients across wards, got %d", len(got))
	}

	got = d.Patients(PatientFilter{Search: "smith", Ward: "A", Room: "102"})
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("conjunctive filter: got %v", got)
	}

	if got = d.Patients(PatientFilter{}); len(got) != 3 {
		t.Fatalf("empty filter should return everyone, got %d", len(got))
	}
}

func TestAddCourse(t *testing.T) {
	d := NewDirectory(testPatients())

	c, err := d.AddCourse("p1", Medication{Name: "Amoxicillin", Dose: "500mg", Unit: "cap"}, 30, UsageContinueSame)
	if err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	if c.InitialStock != 30 {
		t.Errorf("initial stock = %d, want 30", c.InitialStock)
	}
	if c.Medication.ID == "" {
		t.Error("expected a generated medication ID")
	}

	if _, err := d.AddCourse("nope", Medication{Name: "X"}, 1, UsageContinueSame); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown patient: got %v", err)
	}
	if _, err := d.AddCourse("p1", Medication{Name: "X"}, -1, UsageContinueSame); !IsValidation(err) {
		t.Errorf("negative stock: got %v", err)
	}
	if _, err := d.AddCourse("p1", Medication{Name: "X"}, 1, UsageStatus("bogus")); !IsValidation(err) {
		t.Errorf("bogus status: got %v", err)
	}
}

func TestUpdateCoursePreservesInitialStock(t *testing.T) {
	d := NewDirectory(testPatients())
	c, err := d.AddCourse("p1", Medication{Name: "Amoxicillin"}, 30, UsageContinueSame)
	if err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	updated, err := d.UpdateCourse(c.ID, Medication{Name: "Amoxicillin", Dose: "250mg"}, UsageTemporarilyStop)
	if err != nil {
		t.Fatalf("UpdateCourse: %v", err)
	}
	if updated.InitialStock != 30 {
		t.Errorf("edit must not touch initial stock, got %d", updated.InitialStock)
	}
	if updated.Status != UsageTemporarilyStop {
		t.Errorf("status = %s, want %s", updated.Status, UsageTemporarilyStop)
	}
	if updated.Medication.ID != c.Medication.ID {
		t.Errorf("edit should keep the medication ID when none is supplied")
	}
}

func TestCoursesForInsertionOrder(t *testing.T) {
	d := NewDirectory(testPatients())
	first, _ := d.AddCourse("p1", Medication{Name: "First"}, 10, UsageContinueSame)
	_, _ = d.AddCourse("p2", Medication{Name: "Other"}, 10, UsageContinueSame)
	second, _ := d.AddCourse("p1", Medication{Name: "Second"}, 10, UsageContinueSame)

	courses := d.CoursesFor("p1")
	if len(courses) != 2 || courses[0].ID != first.ID || courses[1].ID != second.ID {
		t.Fatalf("expected [first, second] for p1, got %v", courses)
	}
}

func TestRemoveCourse(t *testing.T) {
	d := NewDirectory(testPatients())
	c, _ := d.AddCourse("p1", Medication{Name: "X"}, 10, UsageContinueSame)

	if err := d.RemoveCourse(c.ID); err != nil {
		t.Fatalf("RemoveCourse: %v", err)
	}
	if _, err := d.Course(c.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("course should be gone, got %v", err)
	}
	if err := d.RemoveCourse(c.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("double delete: got %v", err)
	}
}
