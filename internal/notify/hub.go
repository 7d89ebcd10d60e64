// Package notify pushes live alerts to connected teacher dashboards over
// websockets. Delivery is best effort; a dashboard that is offline or too
// slow to drain its buffer simply misses alerts.
package notify

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second

	// sendBuffer bounds how many alerts may queue per connection before
	// Notify starts dropping them.
	sendBuffer = 16
)

// Alert is one push message for a teacher dashboard.
type Alert struct {
	Type           string    `json:"type"`
	StudentName    string    `json:"student_name"`
	EnrollmentNo   string    `json:"enrollment_no"`
	DistanceMeters float64   `json:"distance_meters,omitempty"`
	At             time.Time `json:"at"`
}

// client pairs a connection with its send queue. The write pump goroutine is
// the only writer on the connection; gorilla allows at most one.
type client struct {
	conn *websocket.Conn
	send chan Alert
}

// Hub tracks websocket connections per teacher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*websocket.Conn]*client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int64]map[*websocket.Conn]*client),
	}
}

// Register adds a connection to a teacher's room and starts its write pump.
func (h *Hub) Register(teacherID int64, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan Alert, sendBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[teacherID]
	if !ok {
		room = make(map[*websocket.Conn]*client)
		h.rooms[teacherID] = room
	}
	room[conn] = c
	h.mu.Unlock()

	go h.writePump(teacherID, c)
}

// writePump drains the client's send queue onto the connection. It exits
// when the queue is closed by Unregister or a write fails.
func (h *Hub) writePump(teacherID int64, c *client) {
	for alert := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(alert); err != nil {
			log.Printf("dropping dead alert connection for teacher %d: %v", teacherID, err)
			h.Unregister(teacherID, c.conn)
			return
		}
	}
}

// Unregister removes a connection from a teacher's room and closes it.
// Safe to call from both the read loop and the write pump; only the call
// that finds the connection still registered closes the send queue.
func (h *Hub) Unregister(teacherID int64, conn *websocket.Conn) {
	h.mu.Lock()
	var c *client
	if room, ok := h.rooms[teacherID]; ok {
		if c = room[conn]; c != nil {
			delete(room, conn)
			if len(room) == 0 {
				delete(h.rooms, teacherID)
			}
		}
	}
	if c != nil {
		close(c.send)
	}
	h.mu.Unlock()

	_ = conn.Close()
}

// Notify queues an alert for every connection in the teacher's room. It
// never blocks the caller; a connection whose buffer is full loses the alert.
func (h *Hub) Notify(teacherID int64, alert Alert) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[teacherID] {
		select {
		case c.send <- alert:
		default:
		}
	}
}

// ConnectionCount returns the number of open connections for a teacher.
func (h *Hub) ConnectionCount(teacherID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[teacherID])
}
