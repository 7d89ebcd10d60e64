package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// StudentRepository provides PostgreSQL-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = "id, enrollment_no, first_name, last_name, email, template, created_at"

// scanStudent scans a single row into a Student. The template column is
// nullable; students without one are simply not enrolled yet.
func scanStudent(scanner interface{ Scan(...any) error }) (store.Student, error) {
	var s store.Student
	var raw []byte

	err := scanner.Scan(&s.ID, &s.EnrollmentNo, &s.FirstName, &s.LastName, &s.Email, &raw, &s.CreatedAt)
	if err != nil {
		return s, fmt.Errorf("scan student: %w", err)
	}

	if raw != nil {
		var vec pgvector.Vector
		if err := vec.Scan(raw); err != nil {
			return s, fmt.Errorf("parse template vector: %w", err)
		}
		s.Template = facematch.Template(vec.Slice())
	}
	return s, nil
}

func scanStudents(rows *sql.Rows) ([]store.Student, error) {
	var students []store.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// Get retrieves a student by id, returns nil if not found.
func (r *StudentRepository) Get(ctx context.Context, id int64) (*store.Student, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE id = $1", id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByEnrollmentNo retrieves a student by enrollment code, returns nil if not found.
func (r *StudentRepository) GetByEnrollmentNo(ctx context.Context, enrollmentNo string) (*store.Student, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE enrollment_no = $1", enrollmentNo)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all students ordered by enrollment code.
func (r *StudentRepository) List(ctx context.Context) ([]store.Student, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+studentColumns+" FROM students ORDER BY enrollment_no")
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// ListEnrolled returns all students that have a face template.
func (r *StudentRepository) ListEnrolled(ctx context.Context) ([]store.Student, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+studentColumns+" FROM students WHERE template IS NOT NULL ORDER BY enrollment_no")
	if err != nil {
		return nil, fmt.Errorf("query enrolled students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

// Create inserts a new student and fills in the generated id.
func (r *StudentRepository) Create(ctx context.Context, s *store.Student) error {
	var tpl any
	if s.Enrolled() {
		tpl = pgvector.NewVector(s.Template)
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (enrollment_no, first_name, last_name, email, template)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.EnrollmentNo, s.FirstName, s.LastName, s.Email, tpl).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// SetTemplate overwrites the student's enrolled face template.
func (r *StudentRepository) SetTemplate(ctx context.Context, id int64, tpl facematch.Template) error {
	res, err := r.pool.Exec(ctx,
		"UPDATE students SET template = $1 WHERE id = $2", pgvector.NewVector(tpl), id)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
