package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub, teacherID int64) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		hub.Register(teacherID, conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubNotifyDelivers(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub, 42)

	// Registration happens in the server handler goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(42) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ConnectionCount(42) != 1 {
		t.Fatal("Connection never registered")
	}

	sent := Alert{
		Type:           "out_of_zone",
		StudentName:    "Asha Rao",
		EnrollmentNo:   "EN001",
		DistanceMeters: 150,
		At:             time.Now().UTC(),
	}
	hub.Notify(42, sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Alert
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Type != sent.Type || got.EnrollmentNo != sent.EnrollmentNo {
		t.Errorf("Expected %+v, got %+v", sent, got)
	}
	if got.DistanceMeters != 150 {
		t.Errorf("Expected distance 150, got %f", got.DistanceMeters)
	}
}

func TestHubNotifyConcurrent(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub, 42)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(42) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ConnectionCount(42) != 1 {
		t.Fatal("Connection never registered")
	}

	// The dialer does not read while alerts are being queued. Concurrent
	// notifies must all return promptly; a full buffer loses alerts instead
	// of blocking the callers.
	const alerts = 200
	var wg sync.WaitGroup
	for i := 0; i < alerts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Notify(42, Alert{
				Type:           "out_of_zone",
				EnrollmentNo:   "EN001",
				DistanceMeters: float64(n),
				At:             time.Now().UTC(),
			})
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Notify blocked on a slow connection")
	}

	if hub.ConnectionCount(42) != 1 {
		t.Errorf("Expected connection to stay registered, got %d", hub.ConnectionCount(42))
	}

	received := 0
	for {
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var got Alert
		if err := conn.ReadJSON(&got); err != nil {
			break
		}
		received++
	}
	if received == 0 {
		t.Error("Expected at least one alert to reach the slow reader")
	}
	if received > alerts {
		t.Errorf("Received %d alerts, sent only %d", received, alerts)
	}
}

func TestHubNotifyNoRoom(t *testing.T) {
	hub := NewHub()
	// Notifying an empty room must not panic or block.
	hub.Notify(99, Alert{Type: "out_of_zone"})
	if hub.ConnectionCount(99) != 0 {
		t.Errorf("Expected no connections, got %d", hub.ConnectionCount(99))
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub, 7)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount(7) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.mu.RLock()
	var registered *websocket.Conn
	for c := range hub.rooms[7] {
		registered = c
	}
	hub.mu.RUnlock()
	if registered == nil {
		t.Fatal("Connection never registered")
	}

	hub.Unregister(7, registered)
	if hub.ConnectionCount(7) != 0 {
		t.Errorf("Expected 0 connections after unregister, got %d", hub.ConnectionCount(7))
	}
	_ = conn
}
