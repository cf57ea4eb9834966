package session

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"scribble/internal/canvas"
	"scribble/internal/metrics"
	"scribble/internal/rooms"
)

// Transport delivers outbound payloads and tracks which connections belong to
// which room. Implemented by the websocket hub.
type Transport interface {
	JoinRoom(connID, roomID string)
	LeaveRoom(connID, roomID string)
	Unicast(connID string, payload []byte)
	Broadcast(roomID string, payload []byte)
	BroadcastExcept(roomID, exceptID string, payload []byte)
}

type phase int

const (
	phaseUnjoined phase = iota
	phaseJoined
	phaseClosed
)

type connState struct {
	phase  phase
	roomID string
}

// Coordinator binds connections to rooms and turns inbound requests into
// drawing-state mutations plus the broadcasts they produce. Each connection
// moves through unjoined -> joined -> closed; messages outside the current
// phase are ignored as stale.
type Coordinator struct {
	transport Transport
	states    *canvas.Registry
	directory *rooms.Directory
	store     Store
	saver     *Saver
	metrics   *metrics.Metrics

	// mu guards the connection table and serializes room lifecycle (join,
	// disconnect teardown) so a join never observes a half-destroyed room.
	mu    sync.Mutex
	conns map[string]*connState

	// locks holds one operation mutex per room, held across a mutation and its
	// broadcast together so clients receive operations in the order they were
	// applied to the canvas.
	locks map[string]*sync.Mutex
}

func NewCoordinator(transport Transport, states *canvas.Registry, directory *rooms.Directory, store Store, saver *Saver, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		transport: transport,
		states:    states,
		directory: directory,
		store:     store,
		saver:     saver,
		metrics:   m,
		conns:     make(map[string]*connState),
		locks:     make(map[string]*sync.Mutex),
	}
}

// opLock returns the room's operation mutex, creating it on first use.
func (c *Coordinator) opLock(roomID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opLockLocked(roomID)
}

func (c *Coordinator) opLockLocked(roomID string) *sync.Mutex {
	l, ok := c.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[roomID] = l
	}
	return l
}

func (c *Coordinator) HandleConnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[connID] = &connState{phase: phaseUnjoined}
}

func (c *Coordinator) HandleMessage(connID string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("Malformed message from %s: %v", connID, err)
		return
	}

	if env.Type == TypeJoin {
		c.handleJoin(connID, env.Data)
		return
	}

	roomID, ok := c.joinedRoom(connID)
	if !ok {
		return
	}

	// One operation per room at a time, broadcast included, so no client can
	// see a later operation's message before an earlier operation's.
	lock := c.opLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	// The room may have been torn down while waiting on the lock.
	state, ok := c.states.Peek(roomID)
	if !ok {
		return
	}

	switch env.Type {
	case TypeDrawStart:
		c.handleDrawStart(connID, roomID, state, env.Data)
	case TypeDrawMove:
		c.handleDrawMove(connID, roomID, state, env.Data)
	case TypeDrawEnd:
		c.handleDrawEnd(connID, roomID, state, env.Data)
	case TypeCursorMove:
		c.handleCursorMove(connID, roomID, env.Data)
	case TypeUndo:
		c.handleUndo(connID, roomID, state)
	case TypeRedo:
		c.handleRedo(connID, roomID, state)
	case TypeClearCanvas:
		c.handleClear(connID, roomID, state)
	default:
		// Unknown types are ignored so protocol additions don't break older
		// servers mid-rollout.
	}
}

// HandleDisconnect tears the connection down. If it empties the room, the
// canvas is flushed to the store (only when non-empty, so a real save is
// never overwritten by nothing) and both state and directory entries are
// destroyed together.
func (c *Coordinator) HandleDisconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.conns[connID]
	delete(c.conns, connID)
	if !ok || cs.phase != phaseJoined {
		return
	}
	cs.phase = phaseClosed
	roomID := cs.roomID

	lock := c.opLockLocked(roomID)
	lock.Lock()
	defer lock.Unlock()

	// An unfinished stroke from this connection never reaches the canvas.
	if state, ok := c.states.Peek(roomID); ok {
		state.DiscardActive(connID)
	}

	c.directory.Leave(roomID, connID)
	c.transport.LeaveRoom(connID, roomID)
	c.transport.Broadcast(roomID, encode(TypeUserLeft, UserLeft{ID: connID}))

	if !c.directory.IsEmpty(roomID) {
		return
	}

	c.saver.Cancel(roomID)
	if state, ok := c.states.Peek(roomID); ok {
		if snapshot := state.Snapshot(); len(snapshot) > 0 {
			if err := c.store.SaveStrokes(roomID, snapshot); err != nil {
				log.Printf("Flush failed for room %s: %v", roomID, err)
			}
		}
	}
	c.states.Delete(roomID)
	c.directory.Destroy(roomID)
	delete(c.locks, roomID)
	log.Printf("Room %s closed (empty)", roomID)
}

func (c *Coordinator) joinedRoom(connID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.conns[connID]
	if !ok || cs.phase != phaseJoined {
		return "", false
	}
	return cs.roomID, true
}

func (c *Coordinator) handleJoin(connID string, data json.RawMessage) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		return
	}
	if req.Name == "" {
		req.Name = "Guest"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.conns[connID]
	if !ok || cs.phase != phaseUnjoined {
		return
	}

	// Taken under mu, so lock order is always mu then room lock. Keeps the
	// stateSync snapshot consistent with a racing draw handler's broadcast.
	lock := c.opLockLocked(req.RoomID)
	lock.Lock()
	defer lock.Unlock()

	user := c.directory.Join(req.RoomID, connID, req.Name)
	state := c.states.Get(req.RoomID)

	// Hydrate from the last save only when the room has no live strokes, so
	// stale persisted state never clobbers an active session.
	if state.StrokeCount() == 0 {
		saved, err := c.store.LoadStrokes(req.RoomID)
		if err != nil {
			log.Printf("Load failed for room %s, starting empty: %v", req.RoomID, err)
		} else if len(saved) > 0 {
			state.HydrateIfEmpty(saved)
		}
	}

	cs.phase = phaseJoined
	cs.roomID = req.RoomID
	c.transport.JoinRoom(connID, req.RoomID)

	c.transport.Unicast(connID, encode(TypeStateSync, StateSync{
		Strokes:   state.Snapshot(),
		Users:     c.directory.ListUsers(req.RoomID),
		SelfID:    connID,
		SelfColor: user.Color,
	}))
	c.transport.BroadcastExcept(req.RoomID, connID, encode(TypeUserJoined, UserJoined{
		ID:    connID,
		Name:  user.Name,
		Color: user.Color,
	}))
}

func (c *Coordinator) handleDrawStart(connID, roomID string, state *canvas.RoomState, data json.RawMessage) {
	var req DrawStartRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	tool := canvas.Tool(req.Tool)
	if tool != canvas.ToolBrush && tool != canvas.ToolEraser {
		tool = canvas.ToolBrush
	}

	stroke := state.StartStroke(connID, canvas.Point{X: req.X, Y: req.Y}, tool, req.Color, req.Width, req.StrokeID)
	c.transport.BroadcastExcept(roomID, connID, encode(TypeStrokeStart, StrokeStart{
		OwnerID: connID,
		Stroke:  stroke,
	}))
}

func (c *Coordinator) handleDrawMove(connID, roomID string, state *canvas.RoomState, data json.RawMessage) {
	var req DrawMoveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	// A move without an active stroke is a late or duplicate message, not an
	// error; it produces no broadcast.
	if !state.AppendPoints(connID, req.Points) {
		return
	}
	c.transport.BroadcastExcept(roomID, connID, encode(TypeStrokeMove, StrokeMove{
		OwnerID:  connID,
		StrokeID: req.StrokeID,
		Points:   req.Points,
	}))
}

func (c *Coordinator) handleDrawEnd(connID, roomID string, state *canvas.RoomState, data json.RawMessage) {
	var req DrawEndRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	stroke, ok := state.CompleteStroke(connID, req.StrokeID)
	if !ok {
		return
	}

	c.transport.BroadcastExcept(roomID, connID, encode(TypeStrokeEnd, StrokeEnd{
		OwnerID:  connID,
		StrokeID: stroke.ID,
	}))
	c.metrics.IncStroke()
	c.saver.Schedule(roomID)
}

func (c *Coordinator) handleCursorMove(connID, roomID string, data json.RawMessage) {
	var req CursorMoveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	c.transport.BroadcastExcept(roomID, connID, encode(TypeCursorUpdate, CursorUpdate{
		OwnerID: connID,
		X:       req.X,
		Y:       req.Y,
	}))
}

// Undo and redo broadcast the full snapshot to everyone, the originator
// included: receivers may never have tracked the affected stroke
// individually, so they re-render from the authoritative list.

func (c *Coordinator) handleUndo(connID, roomID string, state *canvas.RoomState) {
	snapshot, err := state.Undo(connID)
	if err != nil {
		if errors.Is(err, canvas.ErrStrokeNotFound) {
			log.Printf("Invariant violation: undo in room %s for %s references a missing stroke", roomID, connID)
		}
		return
	}
	c.metrics.IncUndo()
	c.transport.Broadcast(roomID, encode(TypeUndoPerformed, HistoryPerformed{
		OwnerID: connID,
		Strokes: snapshot,
	}))
}

func (c *Coordinator) handleRedo(connID, roomID string, state *canvas.RoomState) {
	snapshot, err := state.Redo(connID)
	if err != nil {
		return
	}
	c.metrics.IncRedo()
	c.transport.Broadcast(roomID, encode(TypeRedoPerformed, HistoryPerformed{
		OwnerID: connID,
		Strokes: snapshot,
	}))
}

func (c *Coordinator) handleClear(connID, roomID string, state *canvas.RoomState) {
	state.Clear()
	c.metrics.IncClear()
	c.transport.Broadcast(roomID, encode(TypeCanvasCleared, CanvasCleared{OwnerID: connID}))
}
