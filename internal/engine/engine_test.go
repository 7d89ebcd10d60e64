package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/enrollment"
	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/notify"
	"github.com/KunalGupta25/EduConnect/internal/store"
	"github.com/KunalGupta25/EduConnect/internal/store/mock"
)

// fakeExtractor maps frame content to a canned extractor response.
type fakeExtractor struct {
	responses map[string]*capture.ExtractResponse
	err       error
}

func (f *fakeExtractor) ExtractFaces(ctx context.Context, frame []byte) (*capture.ExtractResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[string(frame)]; ok {
		return resp, nil
	}
	return &capture.ExtractResponse{}, nil
}

// fakeNotifier records every alert it is asked to deliver.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []struct {
		TeacherID int64
		Alert     notify.Alert
	}
}

func (f *fakeNotifier) Notify(teacherID int64, alert notify.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, struct {
		TeacherID int64
		Alert     notify.Alert
	}{teacherID, alert})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func templateAt(fill float32) facematch.Template {
	tpl := make(facematch.Template, facematch.TemplateDim)
	for i := range tpl {
		tpl[i] = fill
	}
	return tpl
}

func faceResponse(tpls ...facematch.Template) *capture.ExtractResponse {
	resp := &capture.ExtractResponse{FacesCount: len(tpls)}
	for i, tpl := range tpls {
		resp.Faces = append(resp.Faces, capture.Face{FaceIndex: i, Template: tpl, DetScore: 0.95})
	}
	return resp
}

type fixture struct {
	engine    *Engine
	students  *mock.StudentStore
	anchors   *mock.AnchorStore
	ledger    *mock.Ledger
	extractor *fakeExtractor
	notifier  *fakeNotifier
	index     *enrollment.Index
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	students := mock.NewStudentStore()
	anchors := mock.NewAnchorStore()
	ledger := mock.NewLedger(students)
	extractor := &fakeExtractor{responses: make(map[string]*capture.ExtractResponse)}
	notifier := &fakeNotifier{}
	index := enrollment.NewIndex()

	eng := New(students, anchors, ledger, extractor, notifier, index,
		config.IdentifyConfig{MaxDistance: 0.50, SearchLimit: 5})

	return &fixture{
		engine:    eng,
		students:  students,
		anchors:   anchors,
		ledger:    ledger,
		extractor: extractor,
		notifier:  notifier,
		index:     index,
	}
}

func (f *fixture) addStudent(t *testing.T, enrollmentNo string, tpl facematch.Template) store.Student {
	t.Helper()
	return f.students.Add(store.Student{
		EnrollmentNo: enrollmentNo,
		FirstName:    "Test",
		LastName:     enrollmentNo,
		Email:        enrollmentNo + "@school.test",
		Template:     tpl,
	})
}

// frame registers a fake extractor response and returns the frame bytes.
func (f *fixture) frame(name string, resp *capture.ExtractResponse) []byte {
	f.extractor.responses[name] = resp
	return []byte(name)
}

var (
	testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// ~55 m north of the origin anchor.
	inZoneCoord = geo.Coordinate{Lat: 0.0005, Lon: 0}
	// ~150 m north of the origin anchor.
	outOfZoneCoord = geo.Coordinate{Lat: 0.0013475, Lon: 0}
)

func TestVerifyAccepted(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("match", faceResponse(templateAt(0.5)))
	f.anchors.Set(context.Background(), 1, geo.Coordinate{Lat: 0, Lon: 0})

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, &inZoneCoord)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictAccepted {
		t.Errorf("Expected Accepted, got %s", res.Verdict)
	}
	if len(f.ledger.Records()) != 1 {
		t.Errorf("Expected 1 ledger row, got %d", len(f.ledger.Records()))
	}
}

func TestVerifyIdempotentSameDay(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("match", faceResponse(templateAt(0.5)))

	for i := 0; i < 2; i++ {
		res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, nil)
		if err != nil {
			t.Fatalf("Verify %d failed: %v", i, err)
		}
		if res.Verdict != VerdictAccepted {
			t.Errorf("Verify %d: expected Accepted, got %s", i, res.Verdict)
		}
	}
	if len(f.ledger.Records()) != 1 {
		t.Errorf("Expected exactly 1 ledger row, got %d", len(f.ledger.Records()))
	}
}

func TestVerifyNoFace(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("empty", faceResponse())

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, nil)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictRejectedNoFace {
		t.Errorf("Expected RejectedNoFace, got %s", res.Verdict)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("Expected no ledger rows")
	}
}

func TestVerifyNoEnrollment(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", nil)
	frame := f.frame("face", faceResponse(templateAt(0.5)))

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, nil)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictRejectedNoEnrollment {
		t.Errorf("Expected RejectedNoEnrollment, got %s", res.Verdict)
	}
}

func TestVerifyNoMatch(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.0))
	frame := f.frame("stranger", faceResponse(templateAt(0.2)))

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, nil)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictRejectedNoMatch {
		t.Errorf("Expected RejectedNoMatch, got %s", res.Verdict)
	}
	if res.MatchDistance <= facematch.MatchThreshold {
		t.Errorf("Expected distance above threshold, got %f", res.MatchDistance)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("Expected no ledger rows")
	}
}

func TestVerifyOutOfZone(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("match", faceResponse(templateAt(0.5)))
	f.anchors.Set(context.Background(), 42, geo.Coordinate{Lat: 0, Lon: 0})

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, &outOfZoneCoord)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictRejectedOutOfZone {
		t.Errorf("Expected RejectedOutOfZone, got %s", res.Verdict)
	}
	if math.Abs(res.ZoneDistance-150) > 5 {
		t.Errorf("Expected distance near 150 m, got %f", res.ZoneDistance)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("Expected no ledger rows")
	}

	if f.notifier.count() != 1 {
		t.Fatalf("Expected 1 alert, got %d", f.notifier.count())
	}
	alert := f.notifier.alerts[0]
	if alert.TeacherID != 42 {
		t.Errorf("Expected alert to teacher 42, got %d", alert.TeacherID)
	}
	if alert.Alert.StudentName != s.DisplayName() {
		t.Errorf("Expected student name %q in alert, got %q", s.DisplayName(), alert.Alert.StudentName)
	}
}

func TestVerifyOfflineDeferred(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("match", faceResponse(templateAt(0.5)))
	f.anchors.Set(context.Background(), 1, geo.Coordinate{Lat: 0, Lon: 0})

	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, true, &inZoneCoord)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictAcceptedDeferred {
		t.Errorf("Expected AcceptedDeferred, got %s", res.Verdict)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("Expected no ledger rows for deferred verdict")
	}
}

func TestVerifyNoAnchorsConfigured(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	frame := f.frame("match", faceResponse(templateAt(0.5)))

	// A supplied coordinate with zero anchors means no geofence configured.
	res, err := f.engine.Verify(context.Background(), s.ID, frame, testNow, false, &outOfZoneCoord)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Verdict != VerdictAccepted {
		t.Errorf("Expected Accepted, got %s", res.Verdict)
	}
}

func TestVerifyUnknownStudent(t *testing.T) {
	f := newFixture(t)
	frame := f.frame("match", faceResponse(templateAt(0.5)))

	_, err := f.engine.Verify(context.Background(), 999, frame, testNow, false, nil)
	if !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("Expected ErrUnknownStudent, got %v", err)
	}
}

func encodeFrame(frame []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
}

func TestSyncBatchDuplicateAndInvalid(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	match := f.frame("match", faceResponse(templateAt(0.5)))
	stranger := f.frame("stranger", faceResponse(templateAt(0.9)))

	items := []SyncItem{
		{StudentID: s.ID, Frame: encodeFrame(match), CapturedAt: testNow},
		{StudentID: s.ID, Frame: encodeFrame(match), CapturedAt: testNow.Add(time.Hour)},
		{StudentID: s.ID, Frame: encodeFrame(stranger), CapturedAt: testNow.Add(2 * time.Hour)},
	}

	res, err := f.engine.Sync(context.Background(), items)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.SyncedCount != 1 {
		t.Errorf("Expected synced_count=1, got %d", res.SyncedCount)
	}
	if res.SkippedInvalid != 2 {
		t.Errorf("Expected skipped_invalid=2, got %d", res.SkippedInvalid)
	}
	if len(f.ledger.Records()) != 1 {
		t.Errorf("Expected 1 ledger row, got %d", len(f.ledger.Records()))
	}
}

func TestSyncOutOfZoneSkipsSilently(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))
	match := f.frame("match", faceResponse(templateAt(0.5)))
	f.anchors.Set(context.Background(), 1, geo.Coordinate{Lat: 0, Lon: 0})

	res, err := f.engine.Sync(context.Background(), []SyncItem{
		{StudentID: s.ID, Frame: encodeFrame(match), CapturedAt: testNow, Location: &outOfZoneCoord},
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.SkippedInvalid != 1 || res.SyncedCount != 0 {
		t.Errorf("Expected 1 skip, got %+v", res)
	}
	// Replay must never emit live alerts.
	if f.notifier.count() != 0 {
		t.Errorf("Expected no alerts during sync, got %d", f.notifier.count())
	}
}

func TestSyncMalformedItems(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", templateAt(0.5))

	res, err := f.engine.Sync(context.Background(), []SyncItem{
		{StudentID: 0, Frame: "data:image/jpeg;base64,AAAA"},
		{StudentID: s.ID, Frame: ""},
		{StudentID: s.ID, Frame: "not base64 at all!!!"},
		{StudentID: 999, Frame: encodeFrame([]byte("whatever"))},
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.SyncedCount != 0 || res.SkippedInvalid != 4 {
		t.Errorf("Expected 4 skips, got %+v", res)
	}
}

func TestSyncCancelledMidBatch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.engine.Sync(ctx, []SyncItem{{StudentID: 1, Frame: "x"}})
	if err == nil {
		t.Error("Expected context error")
	}
	if res.SyncedCount != 0 {
		t.Errorf("Expected no synced items, got %d", res.SyncedCount)
	}
}

func TestMarkPresent(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", nil)

	inserted, err := f.engine.MarkPresent(context.Background(), s.ID, testNow)
	if err != nil {
		t.Fatalf("MarkPresent failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first mark to insert")
	}

	inserted, err = f.engine.MarkPresent(context.Background(), s.ID, testNow)
	if err != nil {
		t.Fatalf("MarkPresent failed: %v", err)
	}
	if inserted {
		t.Error("Expected second mark to be a no-op")
	}
	if len(f.ledger.Records()) != 1 {
		t.Errorf("Expected 1 ledger row, got %d", len(f.ledger.Records()))
	}
}

func TestIdentify(t *testing.T) {
	f := newFixture(t)
	a := f.addStudent(t, "EN001", templateAt(0.0))
	b := f.addStudent(t, "EN002", templateAt(1.0))
	students, _ := f.students.List(context.Background())
	if err := f.index.Build(students); err != nil {
		t.Fatalf("Build index failed: %v", err)
	}

	frame := f.frame("room", faceResponse(templateAt(0.0), templateAt(1.0), templateAt(0.5)))

	ids, err := f.engine.Identify(context.Background(), frame)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 identifications, got %d", len(ids))
	}
	got := map[int64]bool{ids[0].StudentID: true, ids[1].StudentID: true}
	if !got[a.ID] || !got[b.ID] {
		t.Errorf("Expected students %d and %d, got %+v", a.ID, b.ID, ids)
	}
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", nil)
	frame := f.frame("enroll", faceResponse(templateAt(0.3)))

	if err := f.engine.Enroll(context.Background(), s.ID, frame); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	got, _ := f.students.Get(context.Background(), s.ID)
	if !got.Enrolled() {
		t.Error("Expected student to have a template after enrollment")
	}
	if f.index.Count() != 1 {
		t.Errorf("Expected 1 indexed student, got %d", f.index.Count())
	}

	crowd := f.frame("crowd", faceResponse(templateAt(0.1), templateAt(0.2)))
	if err := f.engine.Enroll(context.Background(), s.ID, crowd); err == nil {
		t.Error("Expected error enrolling from a frame with two faces")
	}
}
