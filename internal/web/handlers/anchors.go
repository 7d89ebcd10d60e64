package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/KunalGupta25/EduConnect/internal/geo"
	"github.com/KunalGupta25/EduConnect/internal/store"
)

// AnchorsHandler handles teacher location updates.
type AnchorsHandler struct {
	anchors store.AnchorStore
}

// NewAnchorsHandler creates a new anchors handler.
func NewAnchorsHandler(anchors store.AnchorStore) *AnchorsHandler {
	return &AnchorsHandler{anchors: anchors}
}

// SetLocation handles PUT /api/v1/teachers/{id}/location. Each update
// overwrites the teacher's previous anchor; no history is kept.
func (h *AnchorsHandler) SetLocation(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := idParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid teacher id")
		return
	}

	var loc geo.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	err := h.anchors.Set(r.Context(), teacherID, loc)
	if errors.Is(err, store.ErrInvalidCoordinate) {
		respondError(w, http.StatusBadRequest, "invalid coordinate")
		return
	}
	if err != nil {
		log.Printf("setting anchor for teacher %d failed: %v", teacherID, err)
		respondError(w, http.StatusInternalServerError, "failed to store location")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
