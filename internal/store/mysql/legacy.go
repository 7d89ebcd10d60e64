// Package mysql reads the old EduConnect MySQL database so its roster and
// attendance history can be imported into PostgreSQL. The legacy face
// encodings are Python pickle blobs and cannot be carried over; imported
// students have to enroll again.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a connection pool to the legacy MySQL database.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new legacy MySQL connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("legacy MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy MySQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping legacy MySQL: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing legacy database connection: %w", err)
		}
	}
	return nil
}

// LegacyStudent is a roster row from the old schema. HasEncoding reports
// whether the row carried a pickled face encoding; the blob itself is not
// readable from Go.
type LegacyStudent struct {
	ID           int64
	EnrollmentNo string
	FirstName    string
	LastName     string
	Email        string
	HasEncoding  bool
}

// LegacyAttendance is one attendance row from the old schema.
type LegacyAttendance struct {
	StudentID    int64
	EnrollmentNo string
	Name         string
	Status       string
	MarkedAt     time.Time
}

// ListStudents returns the full legacy roster ordered by enrollment code.
func (p *Pool) ListStudents(ctx context.Context) ([]LegacyStudent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, enrollment_no, first_name, last_name, email,
		       face_encoding IS NOT NULL
		FROM students
		ORDER BY enrollment_no
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy students: %w", err)
	}
	defer rows.Close()

	var students []LegacyStudent
	for rows.Next() {
		var s LegacyStudent
		if err := rows.Scan(&s.ID, &s.EnrollmentNo, &s.FirstName, &s.LastName, &s.Email, &s.HasEncoding); err != nil {
			return nil, fmt.Errorf("scan legacy student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy students: %w", err)
	}
	return students, nil
}

// ListAttendance returns all legacy attendance rows in chronological order.
// The old schema stored date and time in separate columns.
func (p *Pool) ListAttendance(ctx context.Context) ([]LegacyAttendance, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.student_id, s.enrollment_no, a.name, a.status,
		       TIMESTAMP(a.date, a.time)
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		ORDER BY a.date, a.time
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy attendance: %w", err)
	}
	defer rows.Close()

	var records []LegacyAttendance
	for rows.Next() {
		var rec LegacyAttendance
		var markedAt string
		if err := rows.Scan(&rec.StudentID, &rec.EnrollmentNo, &rec.Name, &rec.Status, &markedAt); err != nil {
			return nil, fmt.Errorf("scan legacy attendance: %w", err)
		}
		rec.MarkedAt, err = time.ParseInLocation("2006-01-02 15:04:05", markedAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse legacy timestamp %q: %w", markedAt, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy attendance: %w", err)
	}
	return records, nil
}

// CountStudents returns the legacy roster size, used for progress reporting.
func (p *Pool) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return 0, fmt.Errorf("count legacy students: %w", err)
	}
	return count, nil
}
