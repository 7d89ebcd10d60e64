// Package store defines the attendance domain types and the storage
// interfaces the engine and web layers depend on.
package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
)

// Status is an attendance record status.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// Student is an enrolled student. Template is nil until a face has been
// enrolled; re-enrollment overwrites it.
type Student struct {
	ID           int64
	EnrollmentNo string
	FirstName    string
	LastName     string
	Email        string
	Template     facematch.Template
	CreatedAt    time.Time
}

// DisplayName returns the student's full name as stored on attendance rows.
func (s *Student) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Enrolled reports whether the student has a usable face template.
func (s *Student) Enrolled() bool {
	return len(s.Template) > 0
}

// Anchor is a teacher's current reference location for the geofence.
// At most one per teacher; setting a new location overwrites the old one.
type Anchor struct {
	TeacherID int64
	Location  geo.Coordinate
	UpdatedAt time.Time
}

// AttendanceRecord is a single attendance row. Records are only ever inserted
// or bulk-replaced by a day reset, never updated.
type AttendanceRecord struct {
	ID           int64
	StudentID    int64
	EnrollmentNo string
	Name         string
	Status       Status
	MarkedAt     time.Time
}

// Day returns the UTC calendar day the record belongs to.
func (r *AttendanceRecord) Day() time.Time {
	return DayOf(r.MarkedAt)
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// PendingRequest is a student's ask for manual attendance, awaiting a teacher.
// Deleted on approval or rejection, never mutated.
type PendingRequest struct {
	ID        uuid.UUID
	StudentID int64
	CreatedAt time.Time
}

// DaySummary aggregates one day's attendance for the teacher dashboard.
type DaySummary struct {
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Rate    float64 `json:"rate"`
}
