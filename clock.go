package simpace

import (
	"sync"
	"time"
)

// Reading is a clock value in seconds since an arbitrary but fixed epoch.
// Readings from different clocks or processes are not comparable; only
// differences between readings of the same clock are meaningful.
type Reading float64

// Sub returns r-o in seconds.
func (r Reading) Sub(o Reading) float64 {
	return float64(r - o)
}

// Clock is the wall-clock source a Pacer waits on.
// Implementations must be safe for concurrent reads.
type Clock interface {
	// Now returns the current reading. Errors should wrap ErrClockUnavailable.
	Now() (Reading, error)
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() (Reading, error)

// Now calls f.
func (f ClockFunc) Now() (Reading, error) {
	return f()
}

// monotonicEpoch anchors MonotonicClock readings. time.Since on it uses the
// runtime's monotonic clock, so wall-clock adjustments do not leak into readings.
var monotonicEpoch = time.Now()

// MonotonicClock reads the Go runtime monotonic clock. The zero value is ready to use
// and all instances share the same process-wide epoch.
type MonotonicClock struct{}

// Now returns seconds elapsed since the process-wide epoch. It never fails.
func (MonotonicClock) Now() (Reading, error) {
	return Reading(time.Since(monotonicEpoch).Seconds()), nil
}

// VirtualClock is a manually driven clock for test harnesses and offline runs.
// It only moves when told to. Safe for concurrent use.
type VirtualClock struct {
	mu  sync.Mutex
	now Reading
}

// NewVirtualClock creates a VirtualClock starting at the given reading.
func NewVirtualClock(start Reading) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual reading.
func (c *VirtualClock) Now() (Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *VirtualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += Reading(d.Seconds())
}

// Set moves the clock to r if r is later than the current reading.
// The clock never goes backwards.
func (c *VirtualClock) Set(r Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r > c.now {
		c.now = r
	}
}
