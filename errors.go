package simpace

import (
	"errors"
	"fmt"
)

var (
	// ErrClockUnavailable is returned when the underlying time source cannot be read.
	ErrClockUnavailable = errors.New("clock unavailable")

	// ErrUninitializedPacer is returned by Step when Initialize has not succeeded yet.
	ErrUninitializedPacer = errors.New("pacer not initialized")

	// ErrInvalidScaleFactor is returned by New for negative, NaN or infinite scale factors.
	ErrInvalidScaleFactor = errors.New("invalid scale factor")

	// ErrInvalidSimTime is returned by Step when the scaled target is not a finite number.
	ErrInvalidSimTime = errors.New("invalid simulated time")
)

// clockError makes sure err matches ErrClockUnavailable while keeping the cause.
func clockError(err error) error {
	if errors.Is(err, ErrClockUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrClockUnavailable, err)
}
