package canvas

import "sync"

// Registry maps room ids to their drawing state. Constructed once per process
// and injected wherever room state is needed.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*RoomState
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*RoomState)}
}

// Get returns the state for a room, creating it on first use.
func (r *Registry) Get(roomID string) *RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[roomID]
	if !ok {
		state = NewRoomState()
		r.states[roomID] = state
	}
	return state
}

// Peek returns the state for a room without creating it.
func (r *Registry) Peek(roomID string) (*RoomState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[roomID]
	return state, ok
}

// Delete removes a room's state. Called when the last user leaves.
func (r *Registry) Delete(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, roomID)
}

// Len reports how many rooms currently hold state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
