package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Connection identity. ID is unique per socket; UserID comes from the
	// handshake token.
	ID     uuid.UUID
	UserID uuid.UUID

	// Role and display name announced when joining a consultation.
	UserType string
	UserName string

	// Buffered channel of outbound messages.
	Send chan []byte

	// Guarded by mu: the consultation this connection is currently joined to
	// ("" when none), and the closed flag. closed must flip under the same
	// lock enqueue holds, so no goroutine can send on Send after it closes.
	mu                  sync.Mutex
	currentConsultation string
	closed              bool

	// rooms is owned by the hub and guarded by its lock.
	rooms map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		ID:     uuid.New(),
		UserID: userID,
		Send:   make(chan []byte, 256),
		rooms:  make(map[string]bool),
	}
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// CurrentConsultation returns the consultation this connection is joined to,
// or "" if none.
func (c *Client) CurrentConsultation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentConsultation
}

func (c *Client) setCurrentConsultation(id string) {
	c.mu.Lock()
	c.currentConsultation = id
	c.mu.Unlock()
}

// clearCurrentConsultation clears the pointer and reports whether it was set,
// making disconnect cleanup idempotent.
func (c *Client) clearCurrentConsultation() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.currentConsultation
	c.currentConsultation = ""
	return id, id != ""
}

// readPump pumps inbound events from the websocket connection into the
// router. One event is processed at a time per connection.
func (c *Client) readPump(router *Router) {
	defer func() {
		router.HandleDisconnect(c)
		c.Hub.RemoveClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"conn_id": c.ID, "error": err.Error()})
			}
			break
		}
		router.Dispatch(c, raw)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs attaches an authenticated connection to the hub and runs its pumps.
// The read pump runs on the caller's goroutine; fiber's websocket handler
// keeps the connection alive for exactly that long.
func ServeWs(hub *Hub, router *Router, conn *websocket.Conn, userID uuid.UUID) {
	client := newClient(hub, conn, userID)

	go client.writePump()
	client.readPump(router)
}
