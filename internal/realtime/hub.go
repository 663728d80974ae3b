package realtime

import (
	"sync"

	"github.com/roudra323/TeamFlow/internal/metrics"
)

// Transport is the group primitive the room layer is built on.
type Transport interface {
	Liveness
	Join(conn ConnID, room string) error
	Leave(conn ConnID, room string)
	Members(room string) []ConnID
	Send(conn ConnID, frame []byte) error
}

type Liveness interface {
	Alive(conn ConnID) (bool, error)
}

type Client struct {
	ID     ConnID
	UserID int64
	send   chan []byte
}

func NewClient(id ConnID, userID int64, buffer int) *Client {
	if buffer <= 0 {
		buffer = 32
	}
	return &Client{ID: id, UserID: userID, send: make(chan []byte, buffer)}
}

// Outbound yields frames queued for the client. It is closed on Unregister.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Hub is the in-process Transport for websocket clients. A client that is
// unregistered leaves every room it was in.
type Hub struct {
	mu          sync.RWMutex
	clients     map[ConnID]*Client
	rooms       map[string]map[ConnID]struct{}
	memberships map[ConnID]map[string]struct{}
	metrics     *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:     map[ConnID]*Client{},
		rooms:       map[string]map[ConnID]struct{}{},
		memberships: map[ConnID]map[string]struct{}{},
		metrics:     m,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.metrics.ConnectionOpened()
}

func (h *Hub) Unregister(id ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[id]
	if !ok {
		return
	}
	for room := range h.memberships[id] {
		h.removeLocked(id, room)
	}
	delete(h.memberships, id)
	delete(h.clients, id)
	close(client.send)
	h.metrics.ConnectionClosed()
}

func (h *Hub) Join(conn ConnID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return ErrConnGone
	}
	if h.rooms[room] == nil {
		h.rooms[room] = map[ConnID]struct{}{}
	}
	h.rooms[room][conn] = struct{}{}
	if h.memberships[conn] == nil {
		h.memberships[conn] = map[string]struct{}{}
	}
	h.memberships[conn][room] = struct{}{}
	return nil
}

func (h *Hub) Leave(conn ConnID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn, room)
	if rooms, ok := h.memberships[conn]; ok && len(rooms) == 0 {
		delete(h.memberships, conn)
	}
}

func (h *Hub) removeLocked(conn ConnID, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.memberships[conn]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) Members(room string) []ConnID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[room]
	out := make([]ConnID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Send queues frame without blocking. The read lock is held across the
// channel send so Unregister cannot close the channel underneath it.
func (h *Hub) Send(conn ConnID, frame []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[conn]
	if !ok {
		return ErrConnGone
	}
	select {
	case client.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (h *Hub) Alive(conn ConnID) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[conn]
	return ok, nil
}

// Stats reports the number of non-empty rooms and live clients.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.clients)
}
