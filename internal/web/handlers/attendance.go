package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// AttendanceHandler handles ledger read and administration endpoints.
type AttendanceHandler struct {
	engine   *engine.Engine
	ledger   store.Ledger
	students store.StudentStore
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(eng *engine.Engine, ledger store.Ledger, students store.StudentStore) *AttendanceHandler {
	return &AttendanceHandler{engine: eng, ledger: ledger, students: students}
}

// ListDay handles GET /api/v1/attendance/day?date=YYYY-MM-DD&status=present|absent.
func (h *AttendanceHandler) ListDay(w http.ResponseWriter, r *http.Request) {
	day, ok := dateQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	status := store.StatusPresent
	switch r.URL.Query().Get("status") {
	case "", "present":
	case "absent":
		status = store.StatusAbsent
	default:
		respondError(w, http.StatusBadRequest, "status must be present or absent")
		return
	}

	records, err := h.ledger.ListForDay(r.Context(), day, status)
	if err != nil {
		log.Printf("listing attendance for %s failed: %v", day.Format("2006-01-02"), err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":    store.DayOf(day).Format("2006-01-02"),
		"status":  status,
		"records": records,
	})
}

// Summary handles GET /api/v1/attendance/summary?date=YYYY-MM-DD.
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	day, ok := dateQuery(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	total, err := h.students.Count(r.Context())
	if err != nil {
		log.Printf("counting students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	present, err := h.ledger.CountPresentForDay(r.Context(), day)
	if err != nil {
		log.Printf("counting present students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	summary := store.DaySummary{
		Total:   total,
		Present: present,
		Absent:  total - present,
	}
	if total > 0 {
		summary.Rate = float64(present) / float64(total) * 100
	}

	respondJSON(w, http.StatusOK, summary)
}

// ResetDayRequest replaces a whole day's records with one status.
type ResetDayRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// ResetDay handles POST /api/v1/attendance/day/reset. The whole day is
// replaced in one transaction: every existing record deleted, one record
// per student inserted with the requested status.
func (h *AttendanceHandler) ResetDay(w http.ResponseWriter, r *http.Request) {
	var req ResetDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = parsed
	}

	var status store.Status
	switch req.Status {
	case "present":
		status = store.StatusPresent
	case "absent":
		status = store.StatusAbsent
	default:
		respondError(w, http.StatusBadRequest, "status must be present or absent")
		return
	}

	students, err := h.students.List(r.Context())
	if err != nil {
		log.Printf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to reset day")
		return
	}

	if err := h.ledger.ResetDay(r.Context(), day, status, students); err != nil {
		log.Printf("resetting %s to %s failed: %v", store.DayOf(day).Format("2006-01-02"), status, err)
		respondError(w, http.StatusInternalServerError, "failed to reset day")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"date":     store.DayOf(day).Format("2006-01-02"),
		"status":   status,
		"students": len(students),
	})
}

// MarkRequest marks a single student present without face verification.
type MarkRequest struct {
	StudentID int64 `json:"student_id"`
}

// Mark handles POST /api/v1/attendance/mark, the teacher-approved manual path.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID <= 0 {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	inserted, err := h.engine.MarkPresent(r.Context(), req.StudentID, time.Now().UTC())
	if errors.Is(err, engine.ErrUnknownStudent) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		log.Printf("marking student %d failed: %v", req.StudentID, err)
		respondError(w, http.StatusInternalServerError, "failed to mark attendance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"marked": inserted})
}

// MonthlyStats handles GET /api/v1/students/{id}/monthly-stats?year=&month=.
func (h *AttendanceHandler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	studentID, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			respondError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(parsed)
	}

	student, err := h.students.Get(r.Context(), studentID)
	if err != nil {
		log.Printf("looking up student %d failed: %v", studentID, err)
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	presentDays, err := h.ledger.PresentDaysInMonth(r.Context(), studentID, year, month)
	if err != nil {
		log.Printf("monthly stats for student %d failed: %v", studentID, err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"student_id":   studentID,
		"year":         year,
		"month":        int(month),
		"present_days": presentDays,
	})
}
