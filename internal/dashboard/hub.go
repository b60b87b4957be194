package dashboard

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
)

// client is one WebSocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshot messages out to connected clients.
// Clients that fall behind are dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	onChange func(n int)
}

// NewHub creates a hub. onChange, if set, receives the client count.
func NewHub(onChange func(n int)) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		onChange: onChange,
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.changed(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.changed(n)
}

// Broadcast queues message for every client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	var dropped bool
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			close(c.send)
			delete(h.clients, c)
			dropped = true
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	if dropped {
		h.changed(n)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.changed(0)
}

func (h *Hub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}

// readPump discards client messages and unregisters on disconnect.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends queued messages until the channel closes.
func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
