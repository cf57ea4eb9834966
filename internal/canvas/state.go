package canvas

import (
	"errors"
	"sync"
)

var (
	// ErrNothingToUndo means the caller's undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo means the caller's redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrStrokeNotFound means the undo stack referenced a stroke that is no
	// longer in the completed list. This should never happen.
	ErrStrokeNotFound = errors.New("stroke not found")
)

// RoomState holds the authoritative drawing state for one room: the completed
// strokes in paint order, the in-progress stroke per user, and per-user
// undo/redo history. Every method is atomic under the room mutex, so callers
// never observe a half-applied operation.
type RoomState struct {
	mu      sync.Mutex
	strokes []*Stroke
	active  map[string]*Stroke
	undo    map[string][]string
	redo    map[string][]*Stroke
}

func NewRoomState() *RoomState {
	return &RoomState{
		strokes: make([]*Stroke, 0),
		active:  map[string]*Stroke{},
		undo:    map[string][]string{},
		redo:    map[string][]*Stroke{},
	}
}

// StartStroke opens a new active stroke for the owner. Any unfinished stroke
// from a dropped connection or lost message is silently discarded, never
// merged. Returns a copy of the created stroke for broadcast.
func (rs *RoomState) StartStroke(ownerID string, origin Point, tool Tool, color string, width float64, strokeID string) Stroke {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	stroke := newStroke(strokeID, ownerID, origin, tool, color, width)
	rs.active[ownerID] = stroke
	return stroke.clone()
}

// AppendPoints extends the owner's active stroke. Reports false when there is
// no active stroke (late or duplicate message), which is not an error.
func (rs *RoomState) AppendPoints(ownerID string, points []Point) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	stroke, ok := rs.active[ownerID]
	if !ok {
		return false
	}
	stroke.Points = append(stroke.Points, points...)
	return true
}

// CompleteStroke freezes the owner's active stroke and appends it to the
// completed list (newest on top). The stroke id must match the active stroke;
// a mismatch signals a stale network message and is ignored. Completing a
// stroke invalidates the owner's redo history.
func (rs *RoomState) CompleteStroke(ownerID, strokeID string) (Stroke, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	stroke, ok := rs.active[ownerID]
	if !ok || stroke.ID != strokeID {
		return Stroke{}, false
	}

	delete(rs.active, ownerID)
	stroke.Completed = true
	rs.strokes = append(rs.strokes, stroke)
	rs.undo[ownerID] = append(rs.undo[ownerID], stroke.ID)
	delete(rs.redo, ownerID)
	return stroke.clone(), true
}

// Undo removes the owner's most recent completed stroke and parks it on the
// redo stack. Returns the resulting snapshot so every client can re-render
// from the authoritative list. ErrStrokeNotFound indicates corrupted state;
// the popped stack entry is not restored and nothing else is touched.
func (rs *RoomState) Undo(ownerID string) ([]Stroke, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	stack := rs.undo[ownerID]
	if len(stack) == 0 {
		return nil, ErrNothingToUndo
	}
	strokeID := stack[len(stack)-1]
	rs.undo[ownerID] = stack[:len(stack)-1]

	// Most recent match wins, so scan from the end.
	idx := -1
	for i := len(rs.strokes) - 1; i >= 0; i-- {
		if rs.strokes[i].ID == strokeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrStrokeNotFound
	}

	stroke := rs.strokes[idx]
	rs.strokes = append(rs.strokes[:idx], rs.strokes[idx+1:]...)
	rs.redo[ownerID] = append(rs.redo[ownerID], stroke)
	return rs.snapshotLocked(), nil
}

// Redo restores the owner's most recently undone stroke. The stroke reappears
// at the end of the list, on top of everything painted since the undo.
func (rs *RoomState) Redo(ownerID string) ([]Stroke, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	stack := rs.redo[ownerID]
	if len(stack) == 0 {
		return nil, ErrNothingToRedo
	}
	stroke := stack[len(stack)-1]
	rs.redo[ownerID] = stack[:len(stack)-1]

	rs.strokes = append(rs.strokes, stroke)
	rs.undo[ownerID] = append(rs.undo[ownerID], stroke.ID)
	return rs.snapshotLocked(), nil
}

// Clear wipes the canvas for everyone: completed strokes, in-progress strokes
// and all undo/redo history.
func (rs *RoomState) Clear() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.strokes = rs.strokes[:0]
	rs.active = map[string]*Stroke{}
	rs.undo = map[string][]string{}
	rs.redo = map[string][]*Stroke{}
}

// DiscardActive drops the owner's in-progress stroke, if any. Used on
// disconnect; the stroke never reaches the completed list.
func (rs *RoomState) DiscardActive(ownerID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.active, ownerID)
}

// Snapshot returns a copy of the completed strokes in paint order.
func (rs *RoomState) Snapshot() []Stroke {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.snapshotLocked()
}

func (rs *RoomState) snapshotLocked() []Stroke {
	out := make([]Stroke, len(rs.strokes))
	for i, s := range rs.strokes {
		out[i] = s.clone()
	}
	return out
}

// StrokeCount reports the number of completed strokes.
func (rs *RoomState) StrokeCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.strokes)
}

// HydrateIfEmpty seeds the completed list from persisted strokes. Skipped when
// the room already has live strokes so a stale save never clobbers an active
// session. Undo/redo history always starts fresh.
func (rs *RoomState) HydrateIfEmpty(strokes []Stroke) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.strokes) > 0 {
		return false
	}
	rs.strokes = make([]*Stroke, len(strokes))
	for i := range strokes {
		s := strokes[i].clone()
		s.Completed = true
		rs.strokes[i] = &s
	}
	return true
}
