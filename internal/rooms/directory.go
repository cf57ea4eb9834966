package rooms

import (
	"sync"
	"time"
)

// Display colors handed out to joining users. Assignment rotates by join
// counter, so colors repeat once a room has seen more joins than palette
// entries.
var palette = []string{
	"#E74C3C", // red
	"#3498DB", // blue
	"#2ECC71", // green
	"#F39C12", // orange
	"#9B59B6", // purple
	"#1ABC9C", // teal
	"#E91E8C", // pink
	"#34495E", // slate
}

// User is a connected participant in a room.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoomInfo is the directory's read-side summary of a room.
type RoomInfo struct {
	ID        string `json:"id"`
	UserCount int    `json:"userCount"`
}

type membership struct {
	users     map[string]User
	joinOrder []string
	nextColor int
}

// Directory tracks who is connected to which room and assigns display colors.
// It holds no drawing state; room lifecycle is driven by the coordinator.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*membership
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*membership)}
}

// Join registers a connection in a room, creating the room on first use, and
// returns the assigned user record.
func (d *Directory) Join(roomID, connID, name string) User {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.rooms[roomID]
	if !ok {
		m = &membership{users: make(map[string]User)}
		d.rooms[roomID] = m
	}

	user := User{
		ID:       connID,
		Name:     name,
		Color:    palette[m.nextColor%len(palette)],
		JoinedAt: time.Now(),
	}
	m.nextColor++
	m.users[connID] = user
	m.joinOrder = append(m.joinOrder, connID)
	return user
}

// Leave removes a connection from a room. It does not delete the room; the
// coordinator checks IsEmpty and tears down explicitly.
func (d *Directory) Leave(roomID, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.rooms[roomID]
	if !ok {
		return
	}
	delete(m.users, connID)
	for i, id := range m.joinOrder {
		if id == connID {
			m.joinOrder = append(m.joinOrder[:i], m.joinOrder[i+1:]...)
			break
		}
	}
}

func (d *Directory) IsEmpty(roomID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.rooms[roomID]
	return !ok || len(m.users) == 0
}

// ListUsers returns the room's users in join order.
func (d *Directory) ListUsers(roomID string) []User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	users := make([]User, 0, len(m.users))
	for _, id := range m.joinOrder {
		if u, ok := m.users[id]; ok {
			users = append(users, u)
		}
	}
	return users
}

// GetUser looks up a single connection's user record.
func (d *Directory) GetUser(roomID, connID string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.rooms[roomID]
	if !ok {
		return User{}, false
	}
	u, ok := m.users[connID]
	return u, ok
}

// ListRooms summarizes every room with at least directory state.
func (d *Directory) ListRooms() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(d.rooms))
	for id, m := range d.rooms {
		infos = append(infos, RoomInfo{ID: id, UserCount: len(m.users)})
	}
	return infos
}

// UserCount reports connected users across all rooms.
func (d *Directory) UserCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total := 0
	for _, m := range d.rooms {
		total += len(m.users)
	}
	return total
}

// Destroy removes all directory state for a room.
func (d *Directory) Destroy(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, roomID)
}
