package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/carebridge/go-wardstock/internal/domain/inventory"
)

// DirectoryStore persists patients and courses so the in-memory
// directory can be rebuilt after a restart. Medication details are
// stored as JSONB; the course columns carry only what queries filter
// on.
type DirectoryStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDirectoryStore creates a new store.
func NewDirectoryStore(pool *pgxpool.Pool, logger *zap.Logger) *DirectoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryStore{pool: pool, logger: logger}
}

// SaveCourse implements inventory.DirectoryWriter.
func (s *DirectoryStore) SaveCourse(ctx context.Context, c *inventory.Course) error {
	med, err := json.Marshal(c.Medication)
	if err != nil {
		return fmt.Errorf("marshal medication: %w", err)
	}

	query := `
		INSERT INTO courses (id, patient_id, medication, initial_stock, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		c.ID, c.PatientID, med, c.InitialStock, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// UpdateCourse implements inventory.DirectoryWriter. initial_stock is not
// in the update list on purpose.
func (s *DirectoryStore) UpdateCourse(ctx context.Context, c *inventory.Course) error {
	med, err := json.Marshal(c.Medication)
	if err != nil {
		return fmt.Errorf("marshal medication: %w", err)
	}

	query := `
		UPDATE courses
		SET medication = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, c.ID, med, c.Status, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrCourseNotFound
	}
	return nil
}

// DeleteCourse implements inventory.DirectoryWriter. Transactions stay in
// inventory_transactions; only the course row goes.
func (s *DirectoryStore) DeleteCourse(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// SavePatient implements inventory.DirectoryWriter. Admissions upsert
// so a re-admitted patient refreshes ward and room in place.
func (s *DirectoryStore) SavePatient(ctx context.Context, p inventory.Patient) error {
	query := `
		INSERT INTO patients (id, first_name, last_name, ward, room, hn)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			ward = EXCLUDED.ward,
			room = EXCLUDED.room,
			hn = EXCLUDED.hn
	`
	_, err := s.pool.Exec(ctx, query, p.ID, p.FirstName, p.LastName, p.Ward, p.Room, p.HN)
	if err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}

// LoadDirectory rebuilds the full in-memory directory from storage.
func (s *DirectoryStore) LoadDirectory(ctx context.Context) (*inventory.Directory, error) {
	patients, err := s.loadPatients(ctx)
	if err != nil {
		return nil, err
	}
	dir := inventory.NewDirectory(patients)

	courses, err := s.loadCourses(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		if err := dir.RestoreCourse(c); err != nil {
			s.logger.Warn("skipping orphaned course",
				zap.String("course_id", c.ID),
				zap.String("patient_id", c.PatientID),
				zap.Error(err))
		}
	}

	s.logger.Info("directory loaded",
		zap.Int("patients", len(patients)),
		zap.Int("courses", len(courses)))
	return dir, nil
}

func (s *DirectoryStore) loadPatients(ctx context.Context) ([]inventory.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, first_name, last_name, ward, room, hn FROM patients ORDER BY ward, room, last_name`)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	var patients []inventory.Patient
	for rows.Next() {
		var p inventory.Patient
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Ward, &p.Room, &p.HN); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (s *DirectoryStore) loadCourses(ctx context.Context) ([]*inventory.Course, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, medication, initial_stock, status, created_at, updated_at
		 FROM courses ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	defer rows.Close()

	var courses []*inventory.Course
	for rows.Next() {
		c := &inventory.Course{}
		var med []byte
		if err := rows.Scan(&c.ID, &c.PatientID, &med, &c.InitialStock, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(med, &c.Medication); err != nil {
			return nil, fmt.Errorf("unmarshal medication for course %s: %w", c.ID, err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
