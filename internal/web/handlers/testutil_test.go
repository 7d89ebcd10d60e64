package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/enrollment"
	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/notify"
	"github.com/KunalGupta25/EduConnect/internal/store"
	"github.com/KunalGupta25/EduConnect/internal/store/mock"
)

// fakeExtractor maps frame content to a canned extractor response.
type fakeExtractor struct {
	responses map[string]*capture.ExtractResponse
}

func (f *fakeExtractor) ExtractFaces(ctx context.Context, frame []byte) (*capture.ExtractResponse, error) {
	if resp, ok := f.responses[string(frame)]; ok {
		return resp, nil
	}
	return &capture.ExtractResponse{}, nil
}

type fixture struct {
	engine    *engine.Engine
	students  *mock.StudentStore
	anchors   *mock.AnchorStore
	ledger    *mock.Ledger
	requests  *mock.RequestStore
	extractor *fakeExtractor
	index     *enrollment.Index
	hub       *notify.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	students := mock.NewStudentStore()
	anchors := mock.NewAnchorStore()
	ledger := mock.NewLedger(students)
	requests := mock.NewRequestStore()
	extractor := &fakeExtractor{responses: make(map[string]*capture.ExtractResponse)}
	hub := notify.NewHub()
	index := enrollment.NewIndex()

	eng := engine.New(students, anchors, ledger, extractor, hub, index,
		config.IdentifyConfig{MaxDistance: 0.50, SearchLimit: 5})

	return &fixture{
		engine:    eng,
		students:  students,
		anchors:   anchors,
		ledger:    ledger,
		requests:  requests,
		extractor: extractor,
		index:     index,
		hub:       hub,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Identify: config.IdentifyConfig{MaxDistance: 0.50, SearchLimit: 5},
	}
}

func templateAt(fill float32) facematch.Template {
	tpl := make(facematch.Template, facematch.TemplateDim)
	for i := range tpl {
		tpl[i] = fill
	}
	return tpl
}

// registerFrame wires a canned extractor response for a named frame and
// returns the data-URL payload a client would send.
func (f *fixture) registerFrame(name string, tpls ...facematch.Template) string {
	resp := &capture.ExtractResponse{FacesCount: len(tpls)}
	for i, tpl := range tpls {
		resp.Faces = append(resp.Faces, capture.Face{FaceIndex: i, Template: tpl, DetScore: 0.95})
	}
	f.extractor.responses[name] = resp
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(name))
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

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}
