package trace

import (
	"sync"
	"time"

	"github.com/comalice/simpace"
)

// Recorder collects step reports in memory. With a limit it keeps only the
// most recent entries and counts the rest as dropped.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	scale   float64
	limit   int
	entries []Entry
	next    int // oldest slot once the ring is full
	seen    uint64
	dropped uint64
}

// NewRecorder creates a Recorder. limit <= 0 keeps everything.
func NewRecorder(scale float64, limit int) *Recorder {
	return &Recorder{scale: scale, limit: limit}
}

// ObserveStep implements simpace.Observer.
func (r *Recorder) ObserveStep(report simpace.StepReport, waited time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := Entry{
		Step:          r.seen,
		CurrentTime:   report.CurrentTime,
		StartTime:     report.StartTime,
		TargetElapsed: report.TargetElapsed,
		Waited:        waited.Seconds(),
	}
	r.seen++

	if r.limit > 0 && len(r.entries) == r.limit {
		r.entries[r.next] = e
		r.next = (r.next + 1) % r.limit
		r.dropped++
		return
	}
	r.entries = append(r.entries, e)
}

// Len returns the number of retained entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns a copy of the recorded trace in step order.
func (r *Recorder) Snapshot() Trace {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := make([]Entry, 0, len(r.entries))
	steps = append(steps, r.entries[r.next:]...)
	steps = append(steps, r.entries[:r.next]...)

	return Trace{
		ScaleFactor: r.scale,
		Dropped:     r.dropped,
		Steps:       steps,
	}
}
