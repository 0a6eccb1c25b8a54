// Package simpace paces a simulation against the wall clock.
//
// A Pacer captures a reference reading once (Initialize) and then, for every
// simulation step, blocks the caller until the clock has moved at least
// simulatedTime*ScaleFactor seconds past that reference (Step). A scale factor
// of 1 runs the simulation at real speed, 2 at half speed, 0.5 at double speed
// and 0 disables pacing.
//
// # Example Usage
//
//	p, _ := simpace.New(1.0)
//	if err := p.Initialize(); err != nil {
//		return err
//	}
//	for t := 0.0; t < 10; t += 0.01 {
//		report, err := p.Step(t)
//		if err != nil {
//			return err
//		}
//		advance(t, report)
//	}
//
// # Waiting
//
// The default SpinWaiter busy-waits: no sleep, no yield. Accuracy is bounded
// by the clock read granularity, and one core is fully used while waiting.
// HybridWaiter sleeps for most of the wait and only spins the tail.
// WithVirtualClock replaces waiting entirely by moving a VirtualClock to each
// deadline, which lets tests step through long simulations instantly.
//
// # Clocks
//
//   - MonotonicClock: Go runtime monotonic clock (default)
//   - ProcessCPUClock: process CPU time, like C clock()
//   - VirtualClock: advanced by hand
//   - ClockFunc: any func() (Reading, error)
//
// # Errors
//
// Step before Initialize fails with ErrUninitializedPacer. A failing clock
// surfaces as ErrClockUnavailable. Neither is retried.
package simpace
