package session

import (
	"encoding/json"
	"log"

	"scribble/internal/canvas"
	"scribble/internal/rooms"
)

// Message type tags shared with clients.
const (
	// inbound
	TypeJoin        = "join"
	TypeDrawStart   = "drawStart"
	TypeDrawMove    = "drawMove"
	TypeDrawEnd     = "drawEnd"
	TypeCursorMove  = "cursorMove"
	TypeUndo        = "undo"
	TypeRedo        = "redo"
	TypeClearCanvas = "clearCanvas"

	// outbound
	TypeStateSync     = "stateSync"
	TypeUserJoined    = "userJoined"
	TypeUserLeft      = "userLeft"
	TypeStrokeStart   = "strokeStart"
	TypeStrokeMove    = "strokeMove"
	TypeStrokeEnd     = "strokeEnd"
	TypeCursorUpdate  = "cursorUpdate"
	TypeUndoPerformed = "undoPerformed"
	TypeRedoPerformed = "redoPerformed"
	TypeCanvasCleared = "canvasCleared"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type JoinRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type DrawStartRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Tool     string  `json:"tool"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	StrokeID string  `json:"strokeId,omitempty"`
}

type DrawMoveRequest struct {
	StrokeID string         `json:"strokeId"`
	Points   []canvas.Point `json:"points"`
}

type DrawEndRequest struct {
	StrokeID string `json:"strokeId"`
}

type CursorMoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Outbound payloads

type StateSync struct {
	Strokes   []canvas.Stroke `json:"strokes"`
	Users     []rooms.User    `json:"users"`
	SelfID    string          `json:"selfId"`
	SelfColor string          `json:"selfColor"`
}

type UserJoined struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UserLeft struct {
	ID string `json:"id"`
}

type StrokeStart struct {
	OwnerID string        `json:"ownerId"`
	Stroke  canvas.Stroke `json:"stroke"`
}

type StrokeMove struct {
	OwnerID  string         `json:"ownerId"`
	StrokeID string         `json:"strokeId"`
	Points   []canvas.Point `json:"points"`
}

type StrokeEnd struct {
	OwnerID  string `json:"ownerId"`
	StrokeID string `json:"strokeId"`
}

type CursorUpdate struct {
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type HistoryPerformed struct {
	OwnerID string          `json:"ownerId"`
	Strokes []canvas.Stroke `json:"strokes"`
}

type CanvasCleared struct {
	OwnerID string `json:"ownerId"`
}

// encode wraps a payload in the envelope. Marshal failures mean a programming
// error in an outbound type, so they are logged loudly and produce nil (the
// hub drops nil payloads harmlessly).
func encode(msgType string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("encode %s payload: %v", msgType, err)
		return nil
	}
	out, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		log.Printf("encode %s envelope: %v", msgType, err)
		return nil
	}
	return out
}
