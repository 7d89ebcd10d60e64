package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/KunalGupta25/EduConnect/internal/store"
)

// RequestRepository provides PostgreSQL-backed manual-attendance requests.
type RequestRepository struct {
	pool *Pool
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(pool *Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create inserts a new pending request for a student.
func (r *RequestRepository) Create(ctx context.Context, studentID int64) (*store.PendingRequest, error) {
	req := store.PendingRequest{ID: uuid.New(), StudentID: studentID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO manual_attendance_requests (id, student_id)
		VALUES ($1, $2)
		RETURNING requested_at
	`, req.ID, req.StudentID).Scan(&req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return &req, nil
}

// List returns all pending requests, newest first.
func (r *RequestRepository) List(ctx context.Context) ([]store.PendingRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, requested_at
		FROM manual_attendance_requests
		ORDER BY requested_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var requests []store.PendingRequest
	for rows.Next() {
		var req store.PendingRequest
		if err := rows.Scan(&req.ID, &req.StudentID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// Get retrieves a request by id, returns nil if not found.
func (r *RequestRepository) Get(ctx context.Context, id uuid.UUID) (*store.PendingRequest, error) {
	var req store.PendingRequest
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, requested_at
		FROM manual_attendance_requests
		WHERE id = $1
	`, id).Scan(&req.ID, &req.StudentID, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	return &req, nil
}

// Delete removes a request. Deleting a missing request is not an error.
func (r *RequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM manual_attendance_requests WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return nil
}
