package session

import (
	"log"
	"sync"
	"time"

	"scribble/internal/canvas"
)

// Store is the persistence collaborator. Saves are last-write-wins by room;
// a load with no saved state returns (nil, nil).
type Store interface {
	SaveStrokes(roomID string, strokes []canvas.Stroke) error
	LoadStrokes(roomID string) ([]canvas.Stroke, error)
}

// Saver debounces persistence writes. Rapid stroke completions in one room
// coalesce into a single save once the room goes quiet for the configured
// delay. Saves are fire-and-forget: a failure is logged and the next scheduled
// save retries with fresher data.
type Saver struct {
	store  Store
	states *canvas.Registry
	delay  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewSaver(store Store, states *canvas.Registry, delay time.Duration) *Saver {
	return &Saver{
		store:  store,
		states: states,
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms (or re-arms) the room's save timer.
func (s *Saver) Schedule(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[roomID]; ok {
		timer.Reset(s.delay)
		return
	}
	s.timers[roomID] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, roomID)
		s.mu.Unlock()
		s.save(roomID)
	})
}

// Cancel drops any pending save for the room. Used at teardown, where the
// coordinator flushes synchronously instead.
func (s *Saver) Cancel(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[roomID]; ok {
		timer.Stop()
		delete(s.timers, roomID)
	}
}

// Stop flushes every pending save immediately. Called on shutdown.
func (s *Saver) Stop() {
	s.mu.Lock()
	pending := make([]string, 0, len(s.timers))
	for roomID, timer := range s.timers {
		timer.Stop()
		pending = append(pending, roomID)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, roomID := range pending {
		s.save(roomID)
	}
}

func (s *Saver) save(roomID string) {
	state, ok := s.states.Peek(roomID)
	if !ok {
		// Room was torn down before the timer fired; the teardown flush
		// already covered it.
		return
	}
	snapshot := state.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	if err := s.store.SaveStrokes(roomID, snapshot); err != nil {
		log.Printf("Save failed for room %s: %v", roomID, err)
	}
}
