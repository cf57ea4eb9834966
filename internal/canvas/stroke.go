package canvas

import "github.com/google/uuid"

// Tool selects how a stroke is rendered by clients
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Eraser strokes paint in the canvas background color at double width
const (
	eraserColor      = "#FFFFFF"
	eraserWidthScale = 2
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// A single drawing gesture. Points grow while the stroke is active and are
// frozen once Completed is set.
type Stroke struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId"`
	Tool      Tool    `json:"tool"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Points    []Point `json:"points"`
	Completed bool    `json:"completed"`
}

// Builds a new active stroke with a single origin point. A missing id gets a
// generated one so late-joining clients can still reference the stroke.
func newStroke(id, ownerID string, origin Point, tool Tool, color string, width float64) *Stroke {
	if id == "" {
		id = uuid.NewString()
	}
	if tool == ToolEraser {
		color = eraserColor
		width *= eraserWidthScale
	}
	return &Stroke{
		ID:      id,
		OwnerID: ownerID,
		Tool:    tool,
		Color:   color,
		Width:   width,
		Points:  []Point{origin},
	}
}

// clone returns a copy safe to hand outside the room lock
func (s *Stroke) clone() Stroke {
	out := *s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}
