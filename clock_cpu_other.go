//go:build !linux

package simpace

import (
	"fmt"
	"runtime"
)

// ProcessCPUClock reads CPU time consumed by the whole process.
// It is only implemented on linux; elsewhere every read fails.
type ProcessCPUClock struct{}

// Now always returns ErrClockUnavailable on this platform.
func (ProcessCPUClock) Now() (Reading, error) {
	return 0, fmt.Errorf("%w: process cpu clock not supported on %s", ErrClockUnavailable, runtime.GOOS)
}
