package engine

import (
	"context"
	"log"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// SyncItem is one queued offline verification, replayed later by the client.
type SyncItem struct {
	StudentID  int64           `json:"student_id"`
	Frame      string          `json:"image"`
	CapturedAt time.Time       `json:"captured_at"`
	Location   *geo.Coordinate `json:"location,omitempty"`
}

// SyncResult reports the outcome of one batch.
type SyncResult struct {
	SyncedCount    int `json:"synced_count"`
	SkippedInvalid int `json:"skipped_invalid"`
}

// Sync replays a batch of offline items through the decision pipeline.
// Items run strictly in submission order; each item either becomes one
// ledger row or a counted skip, and one item's failure never touches the
// rest of the batch. No alerts are emitted during replay.
//
// Cancelling the context between items stops the batch; rows already
// written stay written.
func (e *Engine) Sync(ctx context.Context, items []SyncItem) (SyncResult, error) {
	var result SyncResult

	for i := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.syncOne(ctx, &items[i]) {
			result.SyncedCount++
		} else {
			result.SkippedInvalid++
		}
	}

	return result, nil
}

// syncOne replays a single item. Every failure mode resolves to false; the
// reason is logged, never propagated.
func (e *Engine) syncOne(ctx context.Context, item *SyncItem) bool {
	if item.StudentID == 0 || item.Frame == "" {
		log.Printf("sync: skipping item with missing fields")
		return false
	}

	student, err := e.students.Get(ctx, item.StudentID)
	if err != nil {
		log.Printf("sync: student %d lookup failed: %v", item.StudentID, err)
		return false
	}
	if student == nil {
		log.Printf("sync: unknown student %d", item.StudentID)
		return false
	}

	at := item.CapturedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	// Duplicate-of-day check runs against already-committed state, so a
	// second item for the same student and day within one batch skips.
	exists, err := e.ledger.HasRecord(ctx, student.ID, at)
	if err != nil {
		log.Printf("sync: record check for student %d failed: %v", student.ID, err)
		return false
	}
	if exists {
		return false
	}

	frame, err := capture.DecodeFrame(item.Frame)
	if err != nil {
		log.Printf("sync: frame decode for student %d failed: %v", student.ID, err)
		return false
	}

	face, err := e.extractFirstFace(ctx, frame)
	if err != nil {
		log.Printf("sync: extraction for student %d failed: %v", student.ID, err)
		return false
	}
	if face == nil || !student.Enrolled() {
		return false
	}

	if !facematch.IsMatch(facematch.EuclideanDistance(face, student.Template)) {
		return false
	}

	if item.Location != nil {
		_, distance, ok, err := e.checkGeofence(ctx, *item.Location)
		if err != nil {
			log.Printf("sync: geofence for student %d failed: %v", student.ID, err)
			return false
		}
		if ok && !geo.InZone(distance) {
			return false
		}
	}

	err = e.ledger.InsertPresent(ctx, store.AttendanceRecord{
		StudentID:    student.ID,
		EnrollmentNo: student.EnrollmentNo,
		Name:         student.DisplayName(),
		Status:       store.StatusPresent,
		MarkedAt:     at,
	})
	if err != nil {
		// A raced duplicate or a storage failure both resolve to a skip.
		log.Printf("sync: insert for student %d failed: %v", student.ID, err)
		return false
	}
	return true
}
