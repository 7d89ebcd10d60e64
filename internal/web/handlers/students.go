package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/facematch"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// StudentsHandler handles roster endpoints.
type StudentsHandler struct {
	engine   *engine.Engine
	students store.StudentStore
	config   *config.Config
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(eng *engine.Engine, students store.StudentStore, cfg *config.Config) *StudentsHandler {
	return &StudentsHandler{engine: eng, students: students, config: cfg}
}

// studentView is the API shape of a student; the raw template never leaves
// the server.
type studentView struct {
	ID           int64  `json:"id"`
	EnrollmentNo string `json:"enrollment_no"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Enrolled     bool   `json:"enrolled"`
}

func viewOf(s *store.Student) studentView {
	return studentView{
		ID:           s.ID,
		EnrollmentNo: s.EnrollmentNo,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email,
		Enrolled:     s.Enrolled(),
	}
}

// List handles GET /api/v1/students?search=. The search term matches names
// case- and accent-insensitively, and enrollment codes by prefix.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.List(r.Context())
	if err != nil {
		log.Printf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	search := facematch.NormalizeName(r.URL.Query().Get("search"))

	views := make([]studentView, 0, len(students))
	for i := range students {
		s := &students[i]
		if search != "" && !matchesSearch(s, search) {
			continue
		}
		views = append(views, viewOf(s))
	}
	respondJSON(w, http.StatusOK, views)
}

func matchesSearch(s *store.Student, search string) bool {
	return strings.Contains(facematch.NormalizeName(s.DisplayName()), search) ||
		strings.HasPrefix(strings.ToLower(s.EnrollmentNo), search)
}

// Get handles GET /api/v1/students/{id}.
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	student, err := h.students.Get(r.Context(), id)
	if err != nil {
		log.Printf("getting student %d failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	respondJSON(w, http.StatusOK, viewOf(student))
}

// CreateStudentRequest registers a new student without a template.
type CreateStudentRequest struct {
	EnrollmentNo string `json:"enrollment_no"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
}

// Create handles POST /api/v1/students.
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EnrollmentNo == "" || req.FirstName == "" {
		respondError(w, http.StatusBadRequest, "enrollment_no and first_name are required")
		return
	}

	student := store.Student{
		EnrollmentNo: strings.TrimSpace(req.EnrollmentNo),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.TrimSpace(req.Email),
	}
	if err := h.students.Create(r.Context(), &student); err != nil {
		log.Printf("creating student %s failed: %v", sanitizeForLog(req.EnrollmentNo), err)
		respondError(w, http.StatusInternalServerError, "failed to create student")
		return
	}

	respondJSON(w, http.StatusCreated, viewOf(&student))
}

// EnrollRequest carries the enrollment frame.
type EnrollRequest struct {
	Image string `json:"image"`
}

// Enroll handles POST /api/v1/students/{id}/enroll. The frame must contain
// exactly one face; the extracted template replaces any previous one.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	frame, err := capture.DecodeFrame(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image payload")
		return
	}

	err = h.engine.Enroll(r.Context(), id, frame)
	if errors.Is(err, engine.ErrUnknownStudent) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		log.Printf("enrolling student %d failed: %v", id, err)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "enrolled"})
}
