package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
)

// sendBuffer is the per-client outbound queue depth. A client that
// falls this far behind is dropped instead of blocking publishers.
const sendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The surface binds to loopback; same-origin checks add nothing.
	CheckOrigin: func(*http.Request) bool { return true },
}

// client pairs a connection with its outbound queue. All frames go
// out on the single goroutine draining send, which is the only
// writer the connection ever sees.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans candidate lifecycle changes out to connected websocket
// clients so UIs can refresh without polling.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// HandleUpgrade upgrades an HTTP request to a websocket connection
// and registers it with the hub. Each connection gets a writer
// goroutine for its queue; reads are drained so closes are noticed.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("websocket client connected (total: %d)", total)

	go h.writePump(c)
	go h.readPump(c)
}

// writePump drains the client's queue onto the connection. It exits
// when the queue is closed by remove.
func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
			return
		}
	}
}

// readPump discards inbound frames until the connection fails.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

// Publish broadcasts a lifecycle change to all connected clients by
// enqueuing onto each client's queue. A client whose queue is full is
// dropped.
func (h *Hub) Publish(change lifecycle.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		log.Printf("marshaling change event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.remove(c)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		h.remove(c)
		log.Printf("websocket client disconnected (total: %d)", len(h.clients))
	}
}

// remove unregisters a client, closing its queue so the writer
// goroutine exits. Caller holds h.mu; the lock keeps the close from
// racing a Publish enqueue.
func (h *Hub) remove(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}
