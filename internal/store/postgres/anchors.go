package postgres

import (
	"context"
	"fmt"

	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// AnchorRepository provides PostgreSQL-backed teacher anchor storage.
type AnchorRepository struct {
	pool *Pool
}

// NewAnchorRepository creates a new PostgreSQL anchor repository.
func NewAnchorRepository(pool *Pool) *AnchorRepository {
	return &AnchorRepository{pool: pool}
}

// Set records the teacher's current location, overwriting any previous one.
// created_at is preserved on update so List keeps insertion order stable.
func (r *AnchorRepository) Set(ctx context.Context, teacherID int64, loc geo.Coordinate) error {
	if !loc.Valid() {
		return store.ErrInvalidCoordinate
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO teacher_anchors (teacher_id, latitude, longitude)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id)
		DO UPDATE SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, updated_at = NOW()
	`, teacherID, loc.Lat, loc.Lon)
	if err != nil {
		return fmt.Errorf("upsert anchor: %w", err)
	}
	return nil
}

// List returns all anchors in insertion order (earliest first).
func (r *AnchorRepository) List(ctx context.Context) ([]store.Anchor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT teacher_id, latitude, longitude, updated_at
		FROM teacher_anchors
		ORDER BY created_at, teacher_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query anchors: %w", err)
	}
	defer rows.Close()

	var anchors []store.Anchor
	for rows.Next() {
		var a store.Anchor
		if err := rows.Scan(&a.TeacherID, &a.Location.Lat, &a.Location.Lon, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anchors: %w", err)
	}
	return anchors, nil
}
