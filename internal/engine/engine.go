// Package engine decides whether an attendance event is valid. A live
// capture runs the full pipeline: face extraction, template comparison,
// geofence check, atomic ledger insert. An offline batch replays the same
// pipeline through Sync.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/enrollment"
	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/notify"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// ErrUnknownStudent is returned when the requested student does not exist.
var ErrUnknownStudent = errors.New("unknown student")

// Extractor computes face templates from a captured frame.
type Extractor interface {
	ExtractFaces(ctx context.Context, frame []byte) (*capture.ExtractResponse, error)
}

// Notifier pushes a best-effort alert to a teacher's dashboard.
type Notifier interface {
	Notify(teacherID int64, alert notify.Alert)
}

// Engine runs the attendance decision pipeline.
type Engine struct {
	students  store.StudentStore
	anchors   store.AnchorStore
	ledger    store.Ledger
	extractor Extractor
	notifier  Notifier
	index     *enrollment.Index
	identify  config.IdentifyConfig
}

// New creates an engine over the given collaborators.
func New(
	students store.StudentStore,
	anchors store.AnchorStore,
	ledger store.Ledger,
	extractor Extractor,
	notifier Notifier,
	index *enrollment.Index,
	identify config.IdentifyConfig,
) *Engine {
	return &Engine{
		students:  students,
		anchors:   anchors,
		ledger:    ledger,
		extractor: extractor,
		notifier:  notifier,
		index:     index,
		identify:  identify,
	}
}

// extractFirstFace runs the extractor and returns the first detected face
// template, or nil when the frame holds no face.
func (e *Engine) extractFirstFace(ctx context.Context, frame []byte) (facematch.Template, error) {
	resp, err := e.extractor.ExtractFaces(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("extract face: %w", err)
	}
	if resp.FacesCount == 0 || len(resp.Faces) == 0 {
		return nil, nil
	}
	return resp.Faces[0].Template, nil
}

// checkGeofence evaluates the claimant coordinate against all teacher
// anchors. It returns the nearest anchor and distance. When no anchors are
// configured the geofence is treated as not configured and ok is false.
func (e *Engine) checkGeofence(ctx context.Context, claimant geo.Coordinate) (store.Anchor, float64, bool, error) {
	anchors, err := e.anchors.List(ctx)
	if err != nil {
		return store.Anchor{}, 0, false, fmt.Errorf("list anchors: %w", err)
	}

	coords := make([]geo.Coordinate, len(anchors))
	for i, a := range anchors {
		coords[i] = a.Location
	}

	idx, distance, ok := geo.Nearest(claimant, coords)
	if !ok {
		return store.Anchor{}, 0, false, nil
	}
	return anchors[idx], distance, true, nil
}

// Verify runs one live verification to a terminal verdict. A nil coordinate
// skips the geofence check. offline marks the request as queued by a client
// without connectivity; it passes every check but defers the ledger write.
func (e *Engine) Verify(ctx context.Context, studentID int64, frame []byte, at time.Time, offline bool, coord *geo.Coordinate) (Result, error) {
	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return Result{}, fmt.Errorf("lookup student %d: %w", studentID, err)
	}
	if student == nil {
		return Result{}, ErrUnknownStudent
	}

	face, err := e.extractFirstFace(ctx, frame)
	if err != nil {
		return Result{}, err
	}
	if face == nil {
		return Result{Verdict: VerdictRejectedNoFace}, nil
	}

	if !student.Enrolled() {
		return Result{Verdict: VerdictRejectedNoEnrollment}, nil
	}

	distance := facematch.EuclideanDistance(face, student.Template)
	if !facematch.IsMatch(distance) {
		return Result{Verdict: VerdictRejectedNoMatch, MatchDistance: distance}, nil
	}

	if coord != nil {
		nearest, zoneDistance, ok, err := e.checkGeofence(ctx, *coord)
		if err != nil {
			return Result{}, err
		}
		if ok && !geo.InZone(zoneDistance) {
			e.notifier.Notify(nearest.TeacherID, notify.Alert{
				Type:           "out_of_zone",
				StudentName:    student.DisplayName(),
				EnrollmentNo:   student.EnrollmentNo,
				DistanceMeters: zoneDistance,
				At:             at,
			})
			return Result{
				Verdict:       VerdictRejectedOutOfZone,
				MatchDistance: distance,
				ZoneDistance:  zoneDistance,
			}, nil
		}
	}

	if offline {
		return Result{Verdict: VerdictAcceptedDeferred, MatchDistance: distance}, nil
	}

	err = e.ledger.InsertPresent(ctx, store.AttendanceRecord{
		StudentID:    student.ID,
		EnrollmentNo: student.EnrollmentNo,
		Name:         student.DisplayName(),
		Status:       store.StatusPresent,
		MarkedAt:     at,
	})
	// Already marked today counts as success; re-marking is not an error
	// from the student's perspective.
	if err != nil && !errors.Is(err, store.ErrDuplicateRecord) {
		return Result{}, fmt.Errorf("insert attendance: %w", err)
	}

	return Result{Verdict: VerdictAccepted, MatchDistance: distance}, nil
}

// MarkPresent writes a Present record directly, bypassing face and geofence
// checks. Used for teacher-approved manual marks. Returns false when the
// student was already marked for the day.
func (e *Engine) MarkPresent(ctx context.Context, studentID int64, at time.Time) (bool, error) {
	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return false, fmt.Errorf("lookup student %d: %w", studentID, err)
	}
	if student == nil {
		return false, ErrUnknownStudent
	}

	err = e.ledger.InsertPresent(ctx, store.AttendanceRecord{
		StudentID:    student.ID,
		EnrollmentNo: student.EnrollmentNo,
		Name:         student.DisplayName(),
		Status:       store.StatusPresent,
		MarkedAt:     at,
	})
	if errors.Is(err, store.ErrDuplicateRecord) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// Enroll stores a new face template for the student and refreshes the
// identification index. The frame must contain exactly one face.
func (e *Engine) Enroll(ctx context.Context, studentID int64, frame []byte) error {
	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return fmt.Errorf("lookup student %d: %w", studentID, err)
	}
	if student == nil {
		return ErrUnknownStudent
	}

	resp, err := e.extractor.ExtractFaces(ctx, frame)
	if err != nil {
		return fmt.Errorf("extract face: %w", err)
	}
	if resp.FacesCount == 0 {
		return errors.New("no face detected in enrollment frame")
	}
	if resp.FacesCount > 1 {
		return fmt.Errorf("enrollment frame contains %d faces, want exactly one", resp.FacesCount)
	}

	tpl := resp.Faces[0].Template
	if err := e.students.SetTemplate(ctx, studentID, tpl); err != nil {
		return fmt.Errorf("store template: %w", err)
	}

	student.Template = tpl
	if err := e.index.Upsert(*student); err != nil {
		return fmt.Errorf("index template: %w", err)
	}
	return nil
}
