package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// RequestsHandler handles manual attendance requests: a student whose face
// or location check keeps failing can ask a teacher to mark them by hand.
type RequestsHandler struct {
	engine   *engine.Engine
	requests store.RequestStore
	students store.StudentStore
}

// NewRequestsHandler creates a new requests handler.
func NewRequestsHandler(eng *engine.Engine, requests store.RequestStore, students store.StudentStore) *RequestsHandler {
	return &RequestsHandler{engine: eng, requests: requests, students: students}
}

// CreateRequestBody opens a manual attendance request.
type CreateRequestBody struct {
	StudentID int64 `json:"student_id"`
}

// Create handles POST /api/v1/requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if body.StudentID <= 0 {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	student, err := h.students.Get(r.Context(), body.StudentID)
	if err != nil {
		log.Printf("looking up student %d failed: %v", body.StudentID, err)
		respondError(w, http.StatusInternalServerError, "failed to create request")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	req, err := h.requests.Create(r.Context(), body.StudentID)
	if err != nil {
		log.Printf("creating request for student %d failed: %v", body.StudentID, err)
		respondError(w, http.StatusInternalServerError, "failed to create request")
		return
	}

	respondJSON(w, http.StatusCreated, req)
}

// List handles GET /api/v1/requests.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.List(r.Context())
	if err != nil {
		log.Printf("listing requests failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []store.PendingRequest{}
	}
	respondJSON(w, http.StatusOK, requests)
}

// requestByID loads the request addressed by the {id} URL parameter.
func (h *RequestsHandler) requestByID(w http.ResponseWriter, r *http.Request) *store.PendingRequest {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request id")
		return nil
	}

	req, err := h.requests.Get(r.Context(), id)
	if err != nil {
		log.Printf("loading request %s failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load request")
		return nil
	}
	if req == nil {
		respondError(w, http.StatusNotFound, "request not found")
		return nil
	}
	return req
}

// Approve handles POST /api/v1/requests/{id}/approve: marks the student
// present for today and closes the request.
func (h *RequestsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	req := h.requestByID(w, r)
	if req == nil {
		return
	}

	inserted, err := h.engine.MarkPresent(r.Context(), req.StudentID, time.Now().UTC())
	if errors.Is(err, engine.ErrUnknownStudent) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		log.Printf("approving request %s failed: %v", req.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to approve request")
		return
	}

	if err := h.requests.Delete(r.Context(), req.ID); err != nil {
		log.Printf("closing request %s failed: %v", req.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to close request")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"marked": inserted})
}

// Reject handles DELETE /api/v1/requests/{id}: closes the request without
// touching the ledger.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req := h.requestByID(w, r)
	if req == nil {
		return
	}

	if err := h.requests.Delete(r.Context(), req.ID); err != nil {
		log.Printf("rejecting request %s failed: %v", req.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to reject request")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
