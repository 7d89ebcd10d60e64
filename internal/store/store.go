package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
)

// StudentStore provides access to enrolled students and their templates.
type StudentStore interface {
	// Get retrieves a student by id, returns nil if not found.
	Get(ctx context.Context, id int64) (*Student, error)
	// GetByEnrollmentNo retrieves a student by enrollment code, returns nil if not found.
	GetByEnrollmentNo(ctx context.Context, enrollmentNo string) (*Student, error)
	// List returns all students ordered by enrollment code.
	List(ctx context.Context) ([]Student, error)
	// ListEnrolled returns all students that have a face template.
	ListEnrolled(ctx context.Context) ([]Student, error)
	// Create inserts a new student and fills in the generated id.
	Create(ctx context.Context, s *Student) error
	// SetTemplate overwrites the student's enrolled face template.
	SetTemplate(ctx context.Context, id int64, tpl facematch.Template) error
	// Count returns the number of students.
	Count(ctx context.Context) (int, error)
}

// AnchorStore provides access to teacher geofence anchors.
type AnchorStore interface {
	// Set records the teacher's current location, overwriting any previous one.
	Set(ctx context.Context, teacherID int64, loc geo.Coordinate) error
	// List returns all anchors in insertion order (earliest first).
	List(ctx context.Context) ([]Anchor, error)
}

// Ledger is the durable attendance store. It owns the invariant that at most
// one Present record exists per student and UTC calendar day.
type Ledger interface {
	// HasRecord checks whether the student already has a record for the day.
	HasRecord(ctx context.Context, studentID int64, day time.Time) (bool, error)
	// InsertPresent inserts a Present record atomically. Returns
	// ErrDuplicateRecord when a row for the student and day already exists;
	// no second row is ever written.
	InsertPresent(ctx context.Context, rec AttendanceRecord) error
	// ResetDay deletes every record for the day and inserts one record with
	// the given status per student, all in a single transaction.
	ResetDay(ctx context.Context, day time.Time, status Status, students []Student) error
	// ListForDay returns the day's records for a status. Present rows come
	// most-recent-mark-first; Absent is derived as enrolled-minus-present,
	// ordered by enrollment code.
	ListForDay(ctx context.Context, day time.Time, status Status) ([]AttendanceRecord, error)
	// CountPresentForDay returns the number of distinct students marked Present.
	CountPresentForDay(ctx context.Context, day time.Time) (int, error)
	// PresentDaysInMonth counts the distinct days a student was Present in a month.
	PresentDaysInMonth(ctx context.Context, studentID int64, year int, month time.Month) (int, error)
}

// RequestStore holds pending manual-attendance requests.
type RequestStore interface {
	// Create inserts a new pending request for a student.
	Create(ctx context.Context, studentID int64) (*PendingRequest, error)
	// List returns all pending requests, newest first.
	List(ctx context.Context) ([]PendingRequest, error)
	// Get retrieves a request by id, returns nil if not found.
	Get(ctx context.Context, id uuid.UUID) (*PendingRequest, error)
	// Delete removes a request. Deleting a missing request is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
