package simpace

import (
	"errors"
	"math"
	"time"
)

// Waiter decides how a Pacer waits for a deadline.
//
// Wait must read clock at least once, and must only return a nil error with a
// reading r for which r-start >= target.
type Waiter interface {
	Wait(clock Clock, start Reading, target float64) (Reading, error)
}

// SpinWaiter polls the clock in a tight loop with no sleep and no yield.
// It occupies a full core while waiting in exchange for the lowest detection
// latency. This is the default Waiter.
type SpinWaiter struct{}

// Wait spins until the deadline is reached.
func (SpinWaiter) Wait(clock Clock, start Reading, target float64) (Reading, error) {
	for {
		now, err := clock.Now()
		if err != nil {
			return 0, err
		}
		if now.Sub(start) >= target {
			return now, nil
		}
	}
}

// maxSleepChunk caps a single sleep so huge targets cannot overflow time.Duration.
const maxSleepChunk = time.Hour

// HybridWaiter sleeps while more than SpinThreshold remains, then spins.
// It trades some accuracy (scheduler wakeup jitter inside the threshold) for a
// much lower CPU cost on long waits.
type HybridWaiter struct {
	// SpinThreshold is the remaining time below which the waiter stops sleeping.
	SpinThreshold time.Duration

	// Sleep replaces time.Sleep when set.
	Sleep func(time.Duration)
}

// Wait sleeps in chunks and finishes with a spin.
func (w HybridWaiter) Wait(clock Clock, start Reading, target float64) (Reading, error) {
	sleep := w.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	threshold := max(w.SpinThreshold, 0)

	for {
		now, err := clock.Now()
		if err != nil {
			return 0, err
		}
		remaining := target - now.Sub(start)
		if remaining <= 0 {
			return now, nil
		}

		var d time.Duration
		if remaining >= maxSleepChunk.Seconds() {
			d = maxSleepChunk
		} else {
			d = time.Duration(remaining * float64(time.Second))
		}
		if d > threshold {
			sleep(d - threshold)
		}
	}
}

// virtualWaiter jumps a VirtualClock straight to the deadline instead of waiting.
type virtualWaiter struct {
	clock *VirtualClock
}

var errForeignClock = errors.New("virtual waiter used with a different clock")

func (w virtualWaiter) Wait(clock Clock, start Reading, target float64) (Reading, error) {
	if clock != Clock(w.clock) {
		return 0, errForeignClock
	}

	now, err := clock.Now()
	if err != nil {
		return 0, err
	}
	if now.Sub(start) >= target {
		return now, nil
	}

	// start+target may round below the target; nudge up one ulp at a time.
	deadline := start + Reading(target)
	for deadline.Sub(start) < target {
		deadline = Reading(math.Nextafter(float64(deadline), math.Inf(1)))
	}
	w.clock.Set(deadline)

	return clock.Now()
}
