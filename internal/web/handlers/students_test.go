package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/KunalGupta25/EduConnect/internal/store"
)

func TestCreateAndGetStudent(t *testing.T) {
	f := newFixture(t)
	handler := NewStudentsHandler(f.engine, f.students, testConfig())

	rec := httptest.NewRecorder()
	handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/v1/students", CreateStudentRequest{
		EnrollmentNo: " EN001 ",
		FirstName:    "  Ángela ",
		LastName:     "Núñez",
		Email:        "angela@school.test",
	}))
	assertStatusCode(t, rec, http.StatusCreated)

	var created studentView
	parseJSONResponse(t, rec, &created)
	if created.FirstName != "Ángela" {
		t.Errorf("expected trimmed first name, got %q", created.FirstName)
	}
	if created.EnrollmentNo != "EN001" {
		t.Errorf("expected trimmed enrollment code, got %q", created.EnrollmentNo)
	}
	if created.Enrolled {
		t.Error("expected new student to be unenrolled")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "1"})
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	var got studentView
	parseJSONResponse(t, rec, &got)
	if got.EnrollmentNo != "EN001" {
		t.Errorf("expected EN001, got %q", got.EnrollmentNo)
	}
}

func TestCreateStudentValidation(t *testing.T) {
	f := newFixture(t)
	handler := NewStudentsHandler(f.engine, f.students, testConfig())

	rec := httptest.NewRecorder()
	handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/v1/students", CreateStudentRequest{
		FirstName: "No",
		LastName:  "Enrollment",
	}))
	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestListStudentsHidesTemplates(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "EN001", templateAt(0.5))
	handler := NewStudentsHandler(f.engine, f.students, testConfig())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
	assertStatusCode(t, rec, http.StatusOK)

	var views []studentView
	parseJSONResponse(t, rec, &views)
	if len(views) != 1 || !views[0].Enrolled {
		t.Errorf("expected one enrolled student, got %+v", views)
	}
	if strings.Contains(rec.Body.String(), "template") {
		t.Errorf("template data leaked into response: %s", rec.Body.String())
	}
}

func TestListStudentsSearch(t *testing.T) {
	f := newFixture(t)
	f.students.Add(store.Student{EnrollmentNo: "EN001", FirstName: "José", LastName: "García"})
	f.students.Add(store.Student{EnrollmentNo: "EN002", FirstName: "Priya", LastName: "Sharma"})
	handler := NewStudentsHandler(f.engine, f.students, testConfig())

	tests := []struct {
		search string
		want   int
	}{
		{search: "jose", want: 1},  // accent-insensitive
		{search: "GARCÍA", want: 1},
		{search: "en00", want: 2},  // enrollment prefix
		{search: "nobody", want: 0},
		{search: "", want: 2},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students?search="+url.QueryEscape(tt.search), nil))
		assertStatusCode(t, rec, http.StatusOK)
		var views []studentView
		parseJSONResponse(t, rec, &views)
		if len(views) != tt.want {
			t.Errorf("search %q: expected %d students, got %d", tt.search, tt.want, len(views))
		}
	}
}

func TestEnrollStudent(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "EN001", nil)
	image := f.registerFrame("enroll", templateAt(0.3))
	handler := NewStudentsHandler(f.engine, f.students, testConfig())

	req := jsonRequest(t, http.MethodPost, "/api/v1/students/1/enroll", EnrollRequest{Image: image})
	req = requestWithChiParams(req, map[string]string{"id": "1"})
	rec := httptest.NewRecorder()
	handler.Enroll(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	got, _ := f.students.Get(t.Context(), s.ID)
	if !got.Enrolled() {
		t.Error("expected student to be enrolled")
	}

	t.Run("no face", func(t *testing.T) {
		empty := f.registerFrame("empty")
		req := jsonRequest(t, http.MethodPost, "/api/v1/students/1/enroll", EnrollRequest{Image: empty})
		req = requestWithChiParams(req, map[string]string{"id": "1"})
		rec := httptest.NewRecorder()
		handler.Enroll(rec, req)
		assertStatusCode(t, rec, http.StatusUnprocessableEntity)
	})

	t.Run("unknown student", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/v1/students/99/enroll", EnrollRequest{Image: image})
		req = requestWithChiParams(req, map[string]string{"id": "99"})
		rec := httptest.NewRecorder()
		handler.Enroll(rec, req)
		assertStatusCode(t, rec, http.StatusNotFound)
	})
}
