package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/KunalGupta25/EduConnect/internal/notify"
)

// AlertsHandler upgrades teacher dashboards to websocket connections and
// parks them in the alert hub.
type AlertsHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(hub *notify.Hub) *AlertsHandler {
	return &AlertsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is enforced by the CORS middleware; the
			// websocket endpoint carries no state-changing operations.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe handles GET /api/v1/alerts/ws?teacher_id=N.
func (h *AlertsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	teacherID, err := strconv.ParseInt(r.URL.Query().Get("teacher_id"), 10, 64)
	if err != nil || teacherID <= 0 {
		respondError(w, http.StatusBadRequest, "teacher_id is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for teacher %d failed: %v", teacherID, err)
		return
	}

	h.hub.Register(teacherID, conn)

	// Alerts flow one way. The read loop only notices the close.
	go func() {
		defer h.hub.Unregister(teacherID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
