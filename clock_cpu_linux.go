//go:build linux

package simpace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ProcessCPUClock reads CPU time consumed by the whole process.
//
// While a SpinWaiter burns a core this advances at roughly wall speed, which
// is how C clock() based pacers behave. It stops while the process sleeps, so
// it must not be combined with HybridWaiter.
type ProcessCPUClock struct{}

// Now returns process CPU seconds.
func (ProcessCPUClock) Now() (Reading, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_PROCESS_CPUTIME_ID, &ts); err != nil {
		return 0, fmt.Errorf("%w: clock_gettime(CLOCK_PROCESS_CPUTIME_ID): %w", ErrClockUnavailable, err)
	}
	return Reading(float64(ts.Sec) + float64(ts.Nsec)/1e9), nil
}
