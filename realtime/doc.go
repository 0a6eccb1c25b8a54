// Package realtime runs a fixed time-step simulation at (a multiple of) real speed.
//
// The Runtime owns a simpace.Pacer and plays the host role for it: it arms
// the pacer once, then for every step k it paces to k*TimeStep simulated
// seconds and hands control to the user StepFunc.
//
// # Example Usage
//
//	rt, _ := realtime.NewRuntime(realtime.Config{
//		TimeStep:    time.Millisecond, // 1000 Hz
//		ScaleFactor: 1,
//		Duration:    2 * time.Second,
//	}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
//		world.Integrate(0.001)
//		return nil
//	})
//	err := rt.Run(ctx)
//
// # Stopping
//
// A run ends when Duration or MaxSteps is reached, when the StepFunc returns
// an error, or when the context is cancelled. Cancellation is only observed
// between steps: a step that is already pacing finishes its wait first.
//
// # Timing
//
// Simulated time is computed as k*TimeStep rather than accumulated, so
// rounding does not drift over long runs. Each step waits against the single
// reference captured at start, so a slow StepFunc is caught up on the next
// step instead of pushing every later step back.
//
// # Use Cases
//
//   - Physics simulations (fixed time-step)
//   - Hardware-in-the-loop rigs that must not outrun the hardware
//   - Human-in-the-loop demos
//   - Replaying recorded traces at recorded speed
package realtime
