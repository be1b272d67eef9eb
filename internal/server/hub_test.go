package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/server"
)

func dialHub(t *testing.T, hub *server.Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleUpgrade))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubPublishReachesClient(t *testing.T) {
	hub := server.NewHub()
	defer hub.Close()
	conn := dialHub(t, hub)

	hub.Publish(lifecycle.Change{
		Kind:      lifecycle.ChangeDetected,
		MessageID: "msg-1",
		Title:     "Team Sync",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading change: %v", err)
	}
	if !strings.Contains(string(payload), "msg-1") {
		t.Errorf("payload = %s", payload)
	}
}

func TestHubConcurrentPublish(t *testing.T) {
	hub := server.NewHub()
	defer hub.Close()
	conn := dialHub(t, hub)

	const publishers = 32
	for i := 0; i < publishers; i++ {
		go hub.Publish(lifecycle.Change{
			Kind:      lifecycle.ChangeDetected,
			MessageID: "msg-1",
			Title:     "Team Sync",
		})
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < publishers; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("reading change %d: %v", i, err)
		}
	}
}

func TestHubCloseDisconnectsClient(t *testing.T) {
	hub := server.NewHub()
	conn := dialHub(t, hub)

	hub.Close()
	if n := hub.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after close")
	}
}
