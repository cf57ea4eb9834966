package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics counts drawing activity across the whole process. Counters are
// atomic so any handler goroutine can bump them without coordination.
type Metrics struct {
	started time.Time
	strokes atomic.Uint64
	undos   atomic.Uint64
	redos   atomic.Uint64
	clears  atomic.Uint64
}

func New() *Metrics {
	return &Metrics{started: time.Now()}
}

func (m *Metrics) IncStroke() { m.strokes.Add(1) }
func (m *Metrics) IncUndo()   { m.undos.Add(1) }
func (m *Metrics) IncRedo()   { m.redos.Add(1) }
func (m *Metrics) IncClear()  { m.clears.Add(1) }

func (m *Metrics) Strokes() uint64 { return m.strokes.Load() }
func (m *Metrics) Undos() uint64   { return m.undos.Load() }
func (m *Metrics) Redos() uint64   { return m.redos.Load() }
func (m *Metrics) Clears() uint64  { return m.clears.Load() }

// Uptime reports how long the process has been serving.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}
