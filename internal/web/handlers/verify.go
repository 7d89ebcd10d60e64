package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/KunalGupta25/EduConnect/internal/capture"
	"github.com/KunalGupta25/EduConnect/internal/config"
	"github.com/KunalGupta25/EduConnect/internal/engine"
	"github.com/KunalGupta25/EduConnect/internal/geo"
)

// VerifyHandler handles the verification endpoints.
type VerifyHandler struct {
	engine *engine.Engine
	config *config.Config
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(eng *engine.Engine, cfg *config.Config) *VerifyHandler {
	return &VerifyHandler{engine: eng, config: cfg}
}

// VerifyRequest is one live verification attempt.
type VerifyRequest struct {
	StudentID  int64           `json:"student_id"`
	Image      string          `json:"image"`
	CapturedAt time.Time       `json:"captured_at"`
	IsOffline  bool            `json:"is_offline"`
	Location   *geo.Coordinate `json:"location,omitempty"`
}

// VerifyResponse reports the terminal verdict of a verification.
type VerifyResponse struct {
	Verdict        string  `json:"verdict"`
	Accepted       bool    `json:"accepted"`
	MatchDistance  float64 `json:"match_distance,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// Verify handles POST /api/v1/attendance/verify.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID <= 0 {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}
	if req.Location != nil && !req.Location.Valid() {
		respondError(w, http.StatusBadRequest, "invalid location")
		return
	}

	frame, err := capture.DecodeFrame(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image payload")
		return
	}

	at := req.CapturedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	result, err := h.engine.Verify(r.Context(), req.StudentID, frame, at, req.IsOffline, req.Location)
	if errors.Is(err, engine.ErrUnknownStudent) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		log.Printf("verify for student %d failed: %v", req.StudentID, err)
		respondError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	respondJSON(w, http.StatusOK, VerifyResponse{
		Verdict:        result.Verdict.String(),
		Accepted:       result.Verdict.Accepted(),
		MatchDistance:  result.MatchDistance,
		DistanceMeters: result.ZoneDistance,
	})
}

// SyncRequest carries a batch of offline-queued verifications.
type SyncRequest struct {
	Items []engine.SyncItem `json:"items"`
}

// Sync handles POST /api/v1/attendance/sync.
func (h *VerifyHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.engine.Sync(r.Context(), req.Items)
	if err != nil {
		// The batch was cancelled mid-flight; committed items stay committed.
		log.Printf("sync batch aborted after %d items: %v", result.SyncedCount+result.SkippedInvalid, err)
		respondJSON(w, http.StatusOK, result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// IdentifyRequest is one classroom camera frame.
type IdentifyRequest struct {
	Image string `json:"image"`
	// Mark writes a Present record for every identified student.
	Mark bool `json:"mark"`
}

// IdentifyResponse lists the students recognized in the frame.
type IdentifyResponse struct {
	Identified []engine.Identification `json:"identified"`
	Marked     int                     `json:"marked"`
}

// Identify handles POST /api/v1/attendance/identify.
func (h *VerifyHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	frame, err := capture.DecodeFrame(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image payload")
		return
	}

	identified, err := h.engine.Identify(r.Context(), frame)
	if err != nil {
		log.Printf("identify failed: %v", err)
		respondError(w, http.StatusInternalServerError, "identification failed")
		return
	}

	resp := IdentifyResponse{Identified: identified}
	if req.Mark {
		now := time.Now().UTC()
		for _, id := range identified {
			inserted, err := h.engine.MarkPresent(r.Context(), id.StudentID, now)
			if err != nil {
				log.Printf("marking identified student %d failed: %v", id.StudentID, err)
				continue
			}
			if inserted {
				resp.Marked++
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
