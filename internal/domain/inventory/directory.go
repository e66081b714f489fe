package inventory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PatientFilter narrows the patient list. Empty values mean no
// constraint on that field; set values are combined with AND.
type PatientFilter struct {
	Ward   string
	Room   string
	Search string
}

// Directory exposes filtered views of patients and their courses.
// Collections live in memory and are recomputed on every query, which
// is fine at single-facility scale.
type Directory struct {
	mu       sync.RWMutex
	patients []Patient
	courses  []*Course
}

// NewDirectory creates a directory seeded with the given patients.
func NewDirectory(patients []Patient) *Directory {
	return &Directory{patients: patients}
}

// AddPatient registers a newly admitted patient. An empty ID gets a
// generated one.
func (d *Directory) AddPatient(p Patient) Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	d.patients = append(d.patients, p)
	return p
}

// Patients returns patients matching the filter. Name search is a
// case-insensitive substring match against first and last name.
func (d *Directory) Patients(f PatientFilter) []Patient {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Patient, 0, len(d.patients))
	needle := strings.ToLower(f.Search)
	for _, p := range d.patients {
		if f.Ward != "" && p.Ward != f.Ward {
			continue
		}
		if f.Room != "" && p.Room != f.Room {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.DisplayName()), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Patient returns one patient by ID.
func (d *Directory) Patient(id string) (Patient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return Patient{}, ErrPatientNotFound
}

// CoursesFor returns all courses for one patient in the order they
// were added.
func (d *Directory) CoursesFor(patientID string) []*Course {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Course
	for _, c := range d.courses {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out
}

// Courses returns every tracked course in the order added.
func (d *Directory) Courses() []*Course {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Course, len(d.courses))
	copy(out, d.courses)
	return out
}

// Course returns one course by ID.
func (d *Directory) Course(id string) (*Course, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrCourseNotFound
}

// AddCourse registers a new course. InitialStock is fixed here and
// immutable afterwards; no transaction is recorded for the initial
// allocation.
func (d *Directory) AddCourse(patientID string, med Medication, initialStock int, status UsageStatus) (*Course, error) {
	if initialStock < 0 {
		return nil, &ValidationError{Field: "initial_stock", Message: "must not be negative"}
	}
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown usage status"}
	}
	if _, err := d.Patient(patientID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now().UTC()
	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	c := &Course{
		ID:           uuid.New().String(),
		PatientID:    patientID,
		Medication:   med,
		InitialStock: initialStock,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	d.courses = append(d.courses, c)
	return c, nil
}

// RestoreCourse re-registers a previously persisted course as-is,
// keeping its ID and timestamps. Used when rebuilding the directory
// from storage.
func (d *Directory) RestoreCourse(c *Course) error {
	if _, err := d.Patient(c.PatientID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.courses = append(d.courses, c)
	return nil
}

// UpdateCourse replaces the descriptive fields and usage status of an
// existing course. InitialStock is never touched by an edit.
func (d *Directory) UpdateCourse(id string, med Medication, status UsageStatus) (*Course, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown usage status"}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.courses {
		if c.ID == id {
			if med.ID == "" {
				med.ID = c.Medication.ID
			}
			c.Medication = med
			c.Status = status
			c.UpdatedAt = time.Now().UTC()
			return c, nil
		}
	}
	return nil, ErrCourseNotFound
}

// RemoveCourse deletes a course immediately. The ledger keeps any
// transactions already recorded against it.
func (d *Directory) RemoveCourse(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.courses {
		if c.ID == id {
			d.courses = append(d.courses[:i], d.courses[i+1:]...)
			return nil
		}
	}
	return ErrCourseNotFound
}
