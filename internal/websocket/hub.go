package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"teleconsult-be/internal/model"
	"teleconsult-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Room key builders. Personal rooms carry cross-cutting notifications; the
// consultation room carries everything scoped to one doctor-patient thread.
func DoctorRoom(id string) string       { return "doctor:" + id }
func PatientRoom(id string) string      { return "patient:" + id }
func AdminRoom(id string) string        { return "admin:" + id }
func ConsultationRoom(id string) string { return "consultation:" + id }

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Hub struct {
	// Room membership map: room key -> set of clients
	rooms map[string]map[*Client]bool

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance delivery
	rdb *redis.Client

	// Identifies this process on the backplane so we skip our own publishes
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run starts the Redis backplane subscriber if Redis is available. Room
// membership itself is mutated synchronously by the event router.
func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToBackplane()
	}
}

// Join adds the client to a room. Idempotent.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.rooms[room] = true
	h.mu.Unlock()
	h.logger.Info("Hub", "Client joined room", map[string]interface{}{"conn_id": c.ID, "room": room})
}

// Leave removes the client from a room, dropping the room once empty.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	h.removeFromRoom(c, room)
	h.mu.Unlock()
}

// RemoveClient drops the client from every room it joined. Called from the
// read pump when the connection dies.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	h.mu.Unlock()
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(c *Client, room string) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// InRoom reports whether the client currently belongs to the room. This is
// the membership check guarding send and signaling events.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.rooms[room]
}

// Emit sends a single event to one client.
func (h *Hub) Emit(c *Client, event string, data interface{}) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"event": event, "error": err})
		return
	}
	if !c.enqueue(payload) {
		h.dropClient(c)
	}
}

// BroadcastRoom sends an event to every member of a room except exclude
// (pass nil to reach everyone), and republishes on the backplane so members
// connected to other instances receive it too.
func (h *Hub) BroadcastRoom(room, event string, data interface{}, exclude *Client) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"event": event, "error": err})
		return
	}

	h.fanout(room, payload, exclude)
	h.publishToBackplane(room, payload)
}

// SendToDoctor pushes a persisted notification onto the doctor's personal
// room (NotificationDelivery interface implementation).
func (h *Hub) SendToDoctor(doctorID uuid.UUID, notification model.Notification) {
	h.BroadcastRoom(DoctorRoom(doctorID.String()), "notification", notification, nil)
}

func (h *Hub) fanout(room string, payload []byte, exclude *Client) {
	var dead []*Client

	h.mu.RLock()
	for client := range h.rooms[room] {
		if client == exclude {
			continue
		}
		if !client.enqueue(payload) {
			dead = append(dead, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dead {
		h.dropClient(client)
	}
}

// dropClient disconnects a client whose send buffer is full; the write pump
// sees the closed channel and tears the socket down.
func (h *Hub) dropClient(c *Client) {
	h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"conn_id": c.ID})
	c.closeSend()
	h.RemoveClient(c)
}

func (h *Hub) publishToBackplane(room string, message []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"origin":  h.instanceID,
		"room":    room,
		"message": message,
	})
	h.rdb.Publish(context.Background(), "cluster_events", payload)
}

func (h *Hub) subscribeToBackplane() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			Origin  string          `json:"origin"`
			Room    string          `json:"room"`
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		// Local members already got this one before it hit the backplane.
		if payload.Origin == h.instanceID {
			continue
		}

		h.fanout(payload.Room, payload.Message, nil)
	}
}
