// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// StudentStore is an in-memory store.StudentStore.
type StudentStore struct {
	mu       sync.RWMutex
	students map[int64]*store.Student
	nextID   int64

	// Error injection
	GetError  error
	ListError error
}

// NewStudentStore creates an empty in-memory student store.
func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[int64]*store.Student), nextID: 1}
}

// Add seeds a student, assigning an id if missing.
func (m *StudentStore) Add(s store.Student) store.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.students[s.ID] = &s
	return s
}

func (m *StudentStore) Get(ctx context.Context, id int64) (*store.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *StudentStore) GetByEnrollmentNo(ctx context.Context, enrollmentNo string) (*store.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.EnrollmentNo == enrollmentNo {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *StudentStore) List(ctx context.Context) ([]store.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentNo < out[j].EnrollmentNo })
	return out, nil
}

func (m *StudentStore) ListEnrolled(ctx context.Context) ([]store.Student, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.Enrolled() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *StudentStore) Create(ctx context.Context, s *store.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *StudentStore) SetTemplate(ctx context.Context, id int64, tpl facematch.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Template = tpl
	return nil
}

func (m *StudentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// AnchorStore is an in-memory store.AnchorStore preserving insertion order.
type AnchorStore struct {
	mu      sync.RWMutex
	anchors []store.Anchor

	SetError  error
	ListError error
}

// NewAnchorStore creates an empty in-memory anchor store.
func NewAnchorStore() *AnchorStore {
	return &AnchorStore{}
}

func (m *AnchorStore) Set(ctx context.Context, teacherID int64, loc geo.Coordinate) error {
	if m.SetError != nil {
		return m.SetError
	}
	if !loc.Valid() {
		return store.ErrInvalidCoordinate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.anchors {
		if m.anchors[i].TeacherID == teacherID {
			m.anchors[i].Location = loc
			m.anchors[i].UpdatedAt = time.Now()
			return nil
		}
	}
	m.anchors = append(m.anchors, store.Anchor{TeacherID: teacherID, Location: loc, UpdatedAt: time.Now()})
	return nil
}

func (m *AnchorStore) List(ctx context.Context) ([]store.Anchor, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Anchor, len(m.anchors))
	copy(out, m.anchors)
	return out, nil
}

// Ledger is an in-memory store.Ledger with the same atomic insert semantics
// as the PostgreSQL implementation.
type Ledger struct {
	mu      sync.Mutex
	records []store.AttendanceRecord
	nextID  int64

	// students provides the enrolled set for deriving Absent lists.
	students *StudentStore

	InsertError error
	ListError   error
	// ResetFailAfter injects a failure after N inserts inside ResetDay to
	// exercise rollback behavior. Zero disables injection.
	ResetFailAfter int
	ResetError     error
}

// NewLedger creates an empty in-memory ledger backed by the given student store.
func NewLedger(students *StudentStore) *Ledger {
	return &Ledger{students: students, nextID: 1}
}

// Records returns a copy of all stored records.
func (m *Ledger) Records() []store.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.AttendanceRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Ledger) HasRecord(ctx context.Context, studentID int64, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasLocked(studentID, store.DayOf(day)), nil
}

func (m *Ledger) hasLocked(studentID int64, day time.Time) bool {
	for i := range m.records {
		if m.records[i].StudentID == studentID && m.records[i].Day().Equal(day) {
			return true
		}
	}
	return false
}

func (m *Ledger) InsertPresent(ctx context.Context, rec store.AttendanceRecord) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasLocked(rec.StudentID, rec.Day()) {
		return store.ErrDuplicateRecord
	}
	rec.ID = m.nextID
	rec.Status = store.StatusPresent
	m.nextID++
	m.records = append(m.records, rec)
	return nil
}

func (m *Ledger) ResetDay(ctx context.Context, day time.Time, status store.Status, students []store.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day = store.DayOf(day)
	snapshot := make([]store.AttendanceRecord, len(m.records))
	copy(snapshot, m.records)

	var kept []store.AttendanceRecord
	for _, r := range m.records {
		if !r.Day().Equal(day) {
			kept = append(kept, r)
		}
	}
	m.records = kept

	markedAt := time.Now().UTC()
	if !store.DayOf(markedAt).Equal(day) {
		markedAt = day.Add(12 * time.Hour)
	}
	for i, s := range students {
		if m.ResetFailAfter > 0 && i >= m.ResetFailAfter {
			// Roll back to the pre-reset state, including deleted rows.
			m.records = snapshot
			if m.ResetError != nil {
				return m.ResetError
			}
			return context.Canceled
		}
		m.records = append(m.records, store.AttendanceRecord{
			ID:           m.nextID,
			StudentID:    s.ID,
			EnrollmentNo: s.EnrollmentNo,
			Name:         s.DisplayName(),
			Status:       status,
			MarkedAt:     markedAt,
		})
		m.nextID++
	}
	return nil
}

func (m *Ledger) ListForDay(ctx context.Context, day time.Time, status store.Status) ([]store.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	day = store.DayOf(day)

	if status == store.StatusPresent {
		m.mu.Lock()
		defer m.mu.Unlock()
		var out []store.AttendanceRecord
		for _, r := range m.records {
			if r.Day().Equal(day) && r.Status == store.StatusPresent {
				out = append(out, r)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].MarkedAt.After(out[j].MarkedAt) })
		return out, nil
	}

	// Absent: stored Absent rows plus enrolled students without any row.
	students, err := m.students.List(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.AttendanceRecord
	for _, s := range students {
		found := false
		var stored *store.AttendanceRecord
		for i := range m.records {
			if m.records[i].StudentID == s.ID && m.records[i].Day().Equal(day) {
				found = true
				if m.records[i].Status == store.StatusAbsent {
					stored = &m.records[i]
				}
				break
			}
		}
		if stored != nil {
			out = append(out, *stored)
		} else if !found {
			out = append(out, store.AttendanceRecord{
				StudentID:    s.ID,
				EnrollmentNo: s.EnrollmentNo,
				Name:         s.DisplayName(),
				Status:       store.StatusAbsent,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentNo < out[j].EnrollmentNo })
	return out, nil
}

func (m *Ledger) CountPresentForDay(ctx context.Context, day time.Time) (int, error) {
	recs, err := m.ListForDay(ctx, day, store.StatusPresent)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{})
	for _, r := range recs {
		seen[r.StudentID] = struct{}{}
	}
	return len(seen), nil
}

func (m *Ledger) PresentDaysInMonth(ctx context.Context, studentID int64, year int, month time.Month) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	days := make(map[time.Time]struct{})
	for _, r := range m.records {
		if r.StudentID != studentID || r.Status != store.StatusPresent {
			continue
		}
		d := r.Day()
		if d.Year() == year && d.Month() == month {
			days[d] = struct{}{}
		}
	}
	return len(days), nil
}

// RequestStore is an in-memory store.RequestStore.
type RequestStore struct {
	mu       sync.Mutex
	requests []store.PendingRequest

	CreateError error
}

// NewRequestStore creates an empty in-memory request store.
func NewRequestStore() *RequestStore {
	return &RequestStore{}
}

func (m *RequestStore) Create(ctx context.Context, studentID int64) (*store.PendingRequest, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req := store.PendingRequest{ID: uuid.New(), StudentID: studentID, CreatedAt: time.Now().UTC()}
	m.requests = append(m.requests, req)
	return &req, nil
}

func (m *RequestStore) List(ctx context.Context) ([]store.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.PendingRequest, len(m.requests))
	copy(out, m.requests)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *RequestStore) Get(ctx context.Context, id uuid.UUID) (*store.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.requests {
		if m.requests[i].ID == id {
			cp := m.requests[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *RequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.requests {
		if m.requests[i].ID == id {
			m.requests = append(m.requests[:i], m.requests[i+1:]...)
			return nil
		}
	}
	return nil
}
