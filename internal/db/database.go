package db

import (
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scribble/internal/canvas"
)

type Database struct {
	db *sql.DB
}

// CanvasRecord is the persisted form of a room's completed strokes.
type CanvasRecord struct {
	RoomID      string
	StrokeCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(dbPath string) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized at %s", dbPath)
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS canvases (
		room_id TEXT PRIMARY KEY,
		strokes BLOB NOT NULL,
		stroke_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_canvases_updated_at ON canvases(updated_at DESC);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveStrokes writes a room's full stroke snapshot, replacing any previous
// save for that room (last write wins).
func (d *Database) SaveStrokes(roomID string, strokes []canvas.Stroke) error {
	data, err := json.Marshal(strokes)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		INSERT INTO canvases (room_id, strokes, stroke_count, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET
			strokes = excluded.strokes,
			stroke_count = excluded.stroke_count,
			updated_at = CURRENT_TIMESTAMP
	`, roomID, data, len(strokes))
	return err
}

// LoadStrokes returns the saved snapshot for a room, or nil when the room has
// never been saved.
func (d *Database) LoadStrokes(roomID string) ([]canvas.Stroke, error) {
	var data []byte
	err := d.db.QueryRow(
		"SELECT strokes FROM canvases WHERE room_id = ?",
		roomID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var strokes []canvas.Stroke
	if err := json.Unmarshal(data, &strokes); err != nil {
		return nil, err
	}
	return strokes, nil
}

// GetCanvas returns save metadata for a room without decoding the strokes.
func (d *Database) GetCanvas(roomID string) (*CanvasRecord, error) {
	row := d.db.QueryRow(
		"SELECT room_id, stroke_count, created_at, updated_at FROM canvases WHERE room_id = ?",
		roomID,
	)

	var rec CanvasRecord
	err := row.Scan(&rec.RoomID, &rec.StrokeCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListCanvases returns saved rooms ordered by most recently updated.
func (d *Database) ListCanvases(limit, offset int) ([]CanvasRecord, error) {
	rows, err := d.db.Query(
		"SELECT room_id, stroke_count, created_at, updated_at FROM canvases ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CanvasRecord
	for rows.Next() {
		var rec CanvasRecord
		if err := rows.Scan(&rec.RoomID, &rec.StrokeCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteCanvas drops a room's saved snapshot.
func (d *Database) DeleteCanvas(roomID string) error {
	_, err := d.db.Exec("DELETE FROM canvases WHERE room_id = ?", roomID)
	return err
}

// Stats

func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var canvasCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM canvases").Scan(&canvasCount); err != nil {
		return nil, err
	}
	stats["canvas_count"] = canvasCount

	var strokeCount int
	if err := d.db.QueryRow("SELECT COALESCE(SUM(stroke_count), 0) FROM canvases").Scan(&strokeCount); err != nil {
		return nil, err
	}
	stats["stroke_count"] = strokeCount

	return stats, nil
}
