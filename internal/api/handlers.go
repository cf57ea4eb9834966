package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scribble/internal/canvas"
	"scribble/internal/db"
	"scribble/internal/metrics"
	"scribble/internal/rooms"
	"scribble/internal/ws"
)

type API struct {
	hub       *ws.Hub
	directory *rooms.Directory
	states    *canvas.Registry
	database  *db.Database
	metrics   *metrics.Metrics
}

func New(hub *ws.Hub, directory *rooms.Directory, states *canvas.Registry, database *db.Database, m *metrics.Metrics) *API {
	return &API{
		hub:       hub,
		directory: directory,
		states:    states,
		database:  database,
		metrics:   m,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// StatsHandler reports process counters plus live and persisted room totals.
func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"uptime_seconds": int64(a.metrics.Uptime().Seconds()),
		"total_strokes":  a.metrics.Strokes(),
		"total_undos":    a.metrics.Undos(),
		"total_redos":    a.metrics.Redos(),
		"total_clears":   a.metrics.Clears(),
		"active_rooms":   a.hub.RoomCount(),
		"active_clients": a.hub.ClientCount(),
		"active_users":   a.directory.UserCount(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if a.database != nil {
		dbStats, err := a.database.GetStats()
		if err == nil {
			stats["saved_canvases"] = dbStats["canvas_count"]
			stats["saved_strokes"] = dbStats["stroke_count"]
		}
	}

	jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID          string       `json:"id"`
	UserCount   int          `json:"userCount"`
	StrokeCount int          `json:"strokeCount"`
	Users       []rooms.User `json:"users,omitempty"`
	Saved       bool         `json:"saved"`
	SavedAt     *time.Time   `json:"savedAt,omitempty"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	live := a.directory.ListRooms()
	response := make([]RoomResponse, len(live))
	for i, info := range live {
		strokeCount := 0
		if state, ok := a.states.Peek(info.ID); ok {
			strokeCount = state.StrokeCount()
		}
		response[i] = RoomResponse{
			ID:          info.ID,
			UserCount:   info.UserCount,
			StrokeCount: strokeCount,
		}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms": response,
		"count": len(response),
	})
}

// SavedRoomsHandler lists persisted canvases, most recently updated first.
func (a *API) SavedRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	records, err := a.database.ListCanvases(limit, offset)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to list saved canvases")
		return
	}

	type savedRoom struct {
		ID          string    `json:"id"`
		StrokeCount int       `json:"strokeCount"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}
	response := make([]savedRoom, len(records))
	for i, rec := range records {
		response[i] = savedRoom{ID: rec.RoomID, StrokeCount: rec.StrokeCount, UpdatedAt: rec.UpdatedAt}
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFromPath(r.URL.Path)
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	response := RoomResponse{ID: roomID}

	if users := a.directory.ListUsers(roomID); len(users) > 0 {
		response.Users = users
		response.UserCount = len(users)
	}
	if state, ok := a.states.Peek(roomID); ok {
		response.StrokeCount = state.StrokeCount()
	}

	rec, err := a.database.GetCanvas(roomID)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to get room")
		return
	}
	if rec != nil {
		response.Saved = true
		response.SavedAt = &rec.UpdatedAt
		if response.UserCount == 0 {
			response.StrokeCount = rec.StrokeCount
		}
	}

	if response.UserCount == 0 && rec == nil {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	jsonResponse(w, http.StatusOK, response)
}

// DeleteRoomHandler drops a room's persisted canvas. Live rooms are refused;
// the coordinator owns their lifecycle.
func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := roomIDFromPath(r.URL.Path)
	if roomID == "" {
		errorResponse(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	if !a.directory.IsEmpty(roomID) {
		errorResponse(w, http.StatusConflict, "Room is active")
		return
	}

	if err := a.database.DeleteCanvas(roomID); err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}

func roomIDFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/rooms/")
	return strings.TrimSuffix(trimmed, "/")
}

func (a *API) RoomsRouter(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/rooms")

	// /api/rooms or /api/rooms/
	if path == "" || path == "/" {
		a.ListRoomsHandler(w, r)
		return
	}

	// /api/rooms/saved
	if path == "/saved" {
		a.SavedRoomsHandler(w, r)
		return
	}

	// /api/rooms/{id}
	switch r.Method {
	case http.MethodGet:
		a.GetRoomHandler(w, r)
	case http.MethodDelete:
		a.DeleteRoomHandler(w, r)
	default:
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
