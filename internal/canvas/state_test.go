package canvas

import (
	"errors"
	"testing"
)

func drawStroke(rs *RoomState, owner, id string, points ...Point) Stroke {
	if len(points) == 0 {
		points = []Point{{0, 0}}
	}
	rs.StartStroke(owner, points[0], ToolBrush, "#000000", 3, id)
	if len(points) > 1 {
		rs.AppendPoints(owner, points[1:])
	}
	stroke, ok := rs.CompleteStroke(owner, id)
	if !ok {
		panic("complete failed for " + id)
	}
	return stroke
}

func TestStrokePointAccumulation(t *testing.T) {
	rs := NewRoomState()

	rs.StartStroke("u1", Point{1, 1}, ToolBrush, "#112233", 4, "s1")
	if !rs.AppendPoints("u1", []Point{{2, 2}, {3, 3}}) {
		t.Fatal("First append should succeed")
	}
	if !rs.AppendPoints("u1", []Point{{4, 4}}) {
		t.Fatal("Second append should succeed")
	}

	stroke, ok := rs.CompleteStroke("u1", "s1")
	if !ok {
		t.Fatal("Complete should succeed")
	}

	want := []Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	if len(stroke.Points) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(stroke.Points))
	}
	for i, p := range want {
		if stroke.Points[i] != p {
			t.Errorf("Point %d: expected %v, got %v", i, p, stroke.Points[i])
		}
	}
	if !stroke.Completed {
		t.Error("Completed stroke should be marked completed")
	}
}

func TestEraserDerivesRenderParams(t *testing.T) {
	rs := NewRoomState()

	stroke := rs.StartStroke("u1", Point{0, 0}, ToolEraser, "#ff0000", 5, "e1")
	if stroke.Color != "#FFFFFF" {
		t.Errorf("Eraser color should be forced to background, got %s", stroke.Color)
	}
	if stroke.Width != 10 {
		t.Errorf("Eraser width should be doubled, got %v", stroke.Width)
	}
}

func TestStartStrokeGeneratesID(t *testing.T) {
	rs := NewRoomState()

	stroke := rs.StartStroke("u1", Point{0, 0}, ToolBrush, "#000", 1, "")
	if stroke.ID == "" {
		t.Error("Stroke without a client id should get a generated one")
	}
}

func TestStartStrokeReplacesStrayActive(t *testing.T) {
	rs := NewRoomState()

	rs.StartStroke("u1", Point{0, 0}, ToolBrush, "#000", 1, "old")
	rs.StartStroke("u1", Point{5, 5}, ToolBrush, "#000", 1, "new")

	// The stray stroke is gone: completing it is a no-op.
	if _, ok := rs.CompleteStroke("u1", "old"); ok {
		t.Error("Completing the replaced stroke should be a no-op")
	}
	if _, ok := rs.CompleteStroke("u1", "new"); !ok {
		t.Error("Completing the replacement should succeed")
	}
}

func TestAppendWithoutActiveStrokeIsNoOp(t *testing.T) {
	rs := NewRoomState()

	if rs.AppendPoints("u1", []Point{{1, 1}}) {
		t.Error("Append without an active stroke should report false")
	}
	if len(rs.Snapshot()) != 0 {
		t.Error("Completed list should stay empty")
	}
}

func TestCompleteMismatchedIDIsNoOp(t *testing.T) {
	rs := NewRoomState()

	rs.StartStroke("u1", Point{0, 0}, ToolBrush, "#000", 1, "s1")
	if _, ok := rs.CompleteStroke("u1", "other"); ok {
		t.Error("Mismatched stroke id should be ignored")
	}
	if _, ok := rs.CompleteStroke("u2", "s1"); ok {
		t.Error("Wrong owner should be ignored")
	}
	if len(rs.Snapshot()) != 0 {
		t.Error("No stroke should have been completed")
	}
}

func TestCompleteClearsRedoStack(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1")
	if _, err := rs.Undo("u1"); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	// New work invalidates forward history.
	drawStroke(rs, "u1", "s2")
	if _, err := rs.Redo("u1"); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Expected ErrNothingToRedo after new stroke, got %v", err)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1", Point{0, 0}, Point{1, 1}, Point{2, 2})
	drawStroke(rs, "u2", "s2")

	snap := rs.Snapshot()
	if len(snap) != 2 || snap[0].ID != "s1" || snap[1].ID != "s2" {
		t.Fatalf("Expected [s1 s2], got %v", strokeIDs(snap))
	}

	snap, err := rs.Undo("u1")
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != "s2" {
		t.Fatalf("After undo expected [s2], got %v", strokeIDs(snap))
	}

	snap, err = rs.Redo("u1")
	if err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	// The redone stroke reappears on top, not at its original position.
	if len(snap) != 2 || snap[0].ID != "s2" || snap[1].ID != "s1" {
		t.Fatalf("After redo expected [s2 s1], got %v", strokeIDs(snap))
	}

	// Redo pushed the id back onto the undo stack.
	snap, err = rs.Undo("u1")
	if err != nil {
		t.Fatalf("Second undo failed: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != "s2" {
		t.Fatalf("After second undo expected [s2], got %v", strokeIDs(snap))
	}
}

func TestUndoIsPerOwner(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "alice", "a1")
	drawStroke(rs, "bob", "b1")

	snap, err := rs.Undo("alice")
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(snap) != 1 || snap[0].ID != "b1" {
		t.Errorf("Alice's undo should only remove her stroke, got %v", strokeIDs(snap))
	}
}

func TestUndoEmptyStack(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1")
	if _, err := rs.Undo("u2"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}
	if len(rs.Snapshot()) != 1 {
		t.Error("Failed undo must not change the stroke list")
	}
}

func TestRedoEmptyStack(t *testing.T) {
	rs := NewRoomState()

	if _, err := rs.Redo("u1"); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Expected ErrNothingToRedo, got %v", err)
	}
}

func TestUndoStrokeNotFound(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1")

	// Simulate corruption: the stroke vanishes from the completed list while
	// the undo stack still references it.
	rs.mu.Lock()
	rs.strokes = rs.strokes[:0]
	rs.mu.Unlock()

	if _, err := rs.Undo("u1"); !errors.Is(err, ErrStrokeNotFound) {
		t.Errorf("Expected ErrStrokeNotFound, got %v", err)
	}

	// The popped entry is not restored, so a second undo reports empty.
	if _, err := rs.Undo("u1"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo after failed undo, got %v", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1")
	drawStroke(rs, "u2", "s2")
	rs.Undo("u2")
	rs.StartStroke("u3", Point{0, 0}, ToolBrush, "#000", 1, "s3")

	rs.Clear()

	if len(rs.Snapshot()) != 0 {
		t.Error("Clear should empty the stroke list")
	}
	if _, err := rs.Undo("u1"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo for u1 after clear, got %v", err)
	}
	if _, err := rs.Redo("u2"); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Expected ErrNothingToRedo for u2 after clear, got %v", err)
	}
	if rs.AppendPoints("u3", []Point{{1, 1}}) {
		t.Error("Clear should discard active strokes")
	}
}

func TestDiscardActive(t *testing.T) {
	rs := NewRoomState()

	rs.StartStroke("u1", Point{0, 0}, ToolBrush, "#000", 1, "s1")
	rs.AppendPoints("u1", []Point{{1, 1}})
	rs.AppendPoints("u1", []Point{{2, 2}})

	rs.DiscardActive("u1")

	if len(rs.Snapshot()) != 0 {
		t.Error("Discarded stroke must never reach the completed list")
	}
	if _, ok := rs.CompleteStroke("u1", "s1"); ok {
		t.Error("Completing a discarded stroke should be a no-op")
	}
}

func TestHydrateIfEmpty(t *testing.T) {
	rs := NewRoomState()

	saved := []Stroke{
		{ID: "s1", OwnerID: "u1", Tool: ToolBrush, Points: []Point{{1, 1}}},
		{ID: "s2", OwnerID: "u2", Tool: ToolBrush, Points: []Point{{2, 2}}},
	}
	if !rs.HydrateIfEmpty(saved) {
		t.Fatal("Hydrating an empty room should succeed")
	}

	snap := rs.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 strokes, got %d", len(snap))
	}
	for _, s := range snap {
		if !s.Completed {
			t.Error("Hydrated strokes should be marked completed")
		}
	}

	// A live room never gets clobbered by stale saved state.
	if rs.HydrateIfEmpty([]Stroke{{ID: "stale"}}) {
		t.Error("Hydrating a non-empty room should be refused")
	}
	if len(rs.Snapshot()) != 2 {
		t.Error("Stroke list should be unchanged after refused hydrate")
	}

	// Hydration does not grant undo history.
	if _, err := rs.Undo("u1"); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo for hydrated strokes, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	rs := NewRoomState()

	drawStroke(rs, "u1", "s1", Point{1, 1}, Point{2, 2})

	snap := rs.Snapshot()
	snap[0].Points[0] = Point{99, 99}
	snap[0].ID = "mutated"

	fresh := rs.Snapshot()
	if fresh[0].ID != "s1" || fresh[0].Points[0] != (Point{1, 1}) {
		t.Error("Mutating a snapshot must not affect room state")
	}
}

func strokeIDs(strokes []Stroke) []string {
	ids := make([]string, len(strokes))
	for i, s := range strokes {
		ids[i] = s.ID
	}
	return ids
}
