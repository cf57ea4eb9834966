package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scribble/internal/api"
	"scribble/internal/canvas"
	"scribble/internal/db"
	"scribble/internal/metrics"
	"scribble/internal/rooms"
	"scribble/internal/session"
	"scribble/internal/ws"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dbPath := os.Getenv("SCRIBBLE_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/scribble.db"
	}

	saveDelay := 2 * time.Second
	if raw := os.Getenv("SCRIBBLE_SAVE_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			saveDelay = time.Duration(ms) * time.Millisecond
		}
	}

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	hub := ws.NewHub()
	states := canvas.NewRegistry()
	directory := rooms.NewDirectory()
	m := metrics.New()
	saver := session.NewSaver(database, states, saveDelay)
	coordinator := session.NewCoordinator(hub, states, directory, database, saver, m)

	apiHandler := api.New(hub, directory, states, database, m)

	// WebSocket endpoint
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, coordinator, w, r)
	})

	http.HandleFunc("/health", apiHandler.HealthHandler)
	http.HandleFunc("/api/stats", apiHandler.StatsHandler)
	http.HandleFunc("/api/rooms", apiHandler.RoomsRouter)
	http.HandleFunc("/api/rooms/", apiHandler.RoomsRouter)

	// Apply CORS middleware
	handler := corsMiddleware(http.DefaultServeMux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		saver.Stop()
		database.Close()
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Scribble server starting on :%s", port)
	log.Printf("Database: %s (save delay %v)", dbPath, saveDelay)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Rooms:     GET /api/rooms")
	log.Println("  - Room:      GET/DELETE /api/rooms/{id}")
	log.Println("  - Saved:     GET /api/rooms/saved")

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
