package ws

import (
	"log"
	"sync"
)

// Handler receives transport events for a connection. The coordinator
// implements it; wiring happens at construction time so no callback can be
// unset at dispatch.
type Handler interface {
	HandleConnect(connID string)
	HandleMessage(connID string, payload []byte)
	HandleDisconnect(connID string)
}

// Hub tracks live connections and their room membership, and delivers
// outbound payloads. Room membership is driven by the coordinator (a
// connection only enters a room once its join request is accepted).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// remove drops a connection from the hub and closes its send queue exactly
// once. Safe to call from both the read pump teardown and a failed delivery.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	if c.roomID != "" {
		if members, ok := h.rooms[c.roomID]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, c.roomID)
			}
		}
	}
	close(c.send)
}

// JoinRoom places a connection in a room's delivery set.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	c.roomID = roomID
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[connID] = c
}

// LeaveRoom removes a connection from a room's delivery set without closing
// the connection itself.
func (h *Hub) LeaveRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connID]; ok && c.roomID == roomID {
		c.roomID = ""
	}
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Unicast sends a payload to one connection.
func (h *Hub) Unicast(connID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connID]; ok {
		h.deliverLocked(c, payload)
	}
}

// Broadcast sends a payload to every connection in a room.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.BroadcastExcept(roomID, "", payload)
}

// BroadcastExcept sends a payload to every room member except one, typically
// the originator who already applied the change locally.
func (h *Hub) BroadcastExcept(roomID, exceptID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.rooms[roomID] {
		if id == exceptID {
			continue
		}
		h.deliverLocked(c, payload)
	}
}

// deliverLocked queues a payload, dropping the connection if its send buffer
// is full so one slow reader can't stall the room.
func (h *Hub) deliverLocked(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		log.Printf("Dropping slow client %s (send buffer full)", c.id)
		h.removeLocked(c)
	}
}

// Read-side accessors for the stats endpoint.

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) ActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[string]int, len(h.rooms))
	for roomID, members := range h.rooms {
		counts[roomID] = len(members)
	}
	return counts
}
