package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/store"
)

// LedgerRepository provides PostgreSQL-backed attendance storage. The
// UNIQUE (student_id, marked_on) constraint backs the one-Present-row-per-day
// invariant; inserts go through ON CONFLICT DO NOTHING so the check and the
// write are a single atomic statement.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL attendance ledger.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// lockClassAttendance namespaces the advisory locks below so they cannot
// collide with locks taken for other purposes on the same database.
const lockClassAttendance = 1

// dayLockKey derives the advisory lock key for a calendar day.
func dayLockKey(day time.Time) int32 {
	return int32(store.DayOf(day).Unix() / 86400)
}

// HasRecord checks whether the student already has a record for the day.
func (r *LedgerRepository) HasRecord(ctx context.Context, studentID int64, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE student_id = $1 AND marked_on = $2)",
		studentID, store.DayOf(day)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// InsertPresent inserts a Present record atomically. Returns
// ErrDuplicateRecord when a row for the student and day already exists.
// The shared day lock keeps inserts out of the window between a running
// ResetDay's DELETE and its INSERTs; concurrent inserts do not block each
// other.
func (r *LedgerRepository) InsertPresent(ctx context.Context, rec store.AttendanceRecord) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock_shared($1, $2)",
		lockClassAttendance, dayLockKey(rec.Day())); err != nil {
		return fmt.Errorf("lock day: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attendance (student_id, enrollment_no, name, status, marked_at, marked_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, marked_on) DO NOTHING
	`, rec.StudentID, rec.EnrollmentNo, rec.Name, store.StatusPresent, rec.MarkedAt, rec.Day())
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	if affected == 0 {
		return store.ErrDuplicateRecord
	}
	return nil
}

// ResetDay deletes every record for the day and inserts one record with the
// given status per student, all in a single transaction. The exclusive day
// lock holds off live inserts for the duration, so a raced insert cannot
// land between the DELETE and the INSERTs and abort the reset on the
// unique constraint.
func (r *LedgerRepository) ResetDay(ctx context.Context, day time.Time, status store.Status, students []store.Student) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	markedOn := store.DayOf(day)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2)",
		lockClassAttendance, dayLockKey(markedOn)); err != nil {
		return fmt.Errorf("lock day: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE marked_on = $1", markedOn); err != nil {
		return fmt.Errorf("delete day records: %w", err)
	}

	markedAt := time.Now().UTC()
	if !store.DayOf(markedAt).Equal(markedOn) {
		markedAt = markedOn.Add(12 * time.Hour)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (student_id, enrollment_no, name, status, marked_at, marked_on)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range students {
		s := &students[i]
		if _, err := stmt.ExecContext(ctx, s.ID, s.EnrollmentNo, s.DisplayName(), status, markedAt, markedOn); err != nil {
			return fmt.Errorf("insert reset record for student %d: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]store.AttendanceRecord, error) {
	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.EnrollmentNo, &rec.Name, &rec.Status, &rec.MarkedAt); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

// ListForDay returns the day's records for a status. Present rows come
// most-recent-mark-first. Absent is stored Absent rows plus enrolled
// students with no row at all, ordered by enrollment code.
func (r *LedgerRepository) ListForDay(ctx context.Context, day time.Time, status store.Status) ([]store.AttendanceRecord, error) {
	markedOn := store.DayOf(day)

	if status == store.StatusPresent {
		rows, err := r.pool.Query(ctx, `
			SELECT id, student_id, enrollment_no, name, status, marked_at
			FROM attendance
			WHERE marked_on = $1 AND status = $2
			ORDER BY marked_at DESC
		`, markedOn, store.StatusPresent)
		if err != nil {
			return nil, fmt.Errorf("query present records: %w", err)
		}
		defer rows.Close()
		return scanRecords(rows)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(a.id, 0), s.id, s.enrollment_no,
		       TRIM(s.first_name || ' ' || s.last_name),
		       $2::varchar, COALESCE(a.marked_at, to_timestamp(0))
		FROM students s
		LEFT JOIN attendance a ON a.student_id = s.id AND a.marked_on = $1
		WHERE a.id IS NULL OR a.status = $2
		ORDER BY s.enrollment_no
	`, markedOn, store.StatusAbsent)
	if err != nil {
		return nil, fmt.Errorf("query absent records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// CountPresentForDay returns the number of distinct students marked Present.
func (r *LedgerRepository) CountPresentForDay(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT student_id) FROM attendance
		WHERE marked_on = $1 AND status = $2
	`, store.DayOf(day), store.StatusPresent).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count present: %w", err)
	}
	return count, nil
}

// PresentDaysInMonth counts the distinct days a student was Present in a month.
func (r *LedgerRepository) PresentDaysInMonth(ctx context.Context, studentID int64, year int, month time.Month) (int, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT marked_on) FROM attendance
		WHERE student_id = $1 AND status = $2 AND marked_on >= $3 AND marked_on < $4
	`, studentID, store.StatusPresent, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count present days: %w", err)
	}
	return count, nil
}
