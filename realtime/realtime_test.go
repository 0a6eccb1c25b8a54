package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/comalice/simpace"
)

// TestRuntimeCreation tests basic runtime creation
func TestRuntimeCreation(t *testing.T) {
	rt, err := NewRuntime(Config{ScaleFactor: 1}, nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	if rt == nil {
		t.Fatal("Runtime is nil")
	}
	if rt.timeStep != 10*time.Millisecond {
		t.Errorf("Expected default time step 10ms, got %v", rt.timeStep)
	}
	if rt.Pacer() == nil {
		t.Fatal("Pacer is nil")
	}
}

// TestRuntimeRejectsBadConfig tests config validation
func TestRuntimeRejectsBadConfig(t *testing.T) {
	if _, err := NewRuntime(Config{TimeStep: -time.Millisecond}, nil); err == nil {
		t.Error("Expected error for negative time step")
	}
	if _, err := NewRuntime(Config{Duration: -time.Second}, nil); err == nil {
		t.Error("Expected error for negative duration")
	}
	if _, err := NewRuntime(Config{ScaleFactor: -1}, nil); !errors.Is(err, simpace.ErrInvalidScaleFactor) {
		t.Errorf("Expected ErrInvalidScaleFactor, got %v", err)
	}
}

// TestStepLoopTiming tests that paced steps take wall time
func TestStepLoopTiming(t *testing.T) {
	var simTimes []float64
	rt, err := NewRuntime(Config{
		TimeStep:    10 * time.Millisecond,
		ScaleFactor: 1,
		Duration:    100 * time.Millisecond,
	}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		simTimes = append(simTimes, simTime)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	start := time.Now()
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	elapsed := time.Since(start)

	// Steps at 0, 10ms, ..., 100ms inclusive
	if len(simTimes) != 11 {
		t.Fatalf("Expected 11 steps, got %d", len(simTimes))
	}
	if rt.GetStepNumber() != 11 {
		t.Errorf("Expected step number 11, got %d", rt.GetStepNumber())
	}

	// Should take ~100ms, never less
	if elapsed < 99*time.Millisecond {
		t.Errorf("Run returned early after %v", elapsed)
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("Run took too long: %v", elapsed)
	}

	last := rt.LastReport()
	if last.Elapsed() < last.TargetElapsed {
		t.Errorf("Pacing guarantee violated: elapsed %v < target %v", last.Elapsed(), last.TargetElapsed)
	}
}

// TestSimTimeIsNotAccumulated tests that simulated time does not drift
func TestSimTimeIsNotAccumulated(t *testing.T) {
	vc := simpace.NewVirtualClock(0)
	var lastSim float64
	rt, err := NewRuntime(Config{
		TimeStep:    time.Millisecond,
		ScaleFactor: 1,
		MaxSteps:    10001,
	}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		lastSim = simTime
		return nil
	}, simpace.WithVirtualClock(vc))
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if lastSim != 10.0 {
		t.Errorf("Expected final sim time exactly 10, got %v", lastSim)
	}
}

// TestMaxSteps tests the step limit
func TestMaxSteps(t *testing.T) {
	vc := simpace.NewVirtualClock(0)
	calls := 0
	rt, err := NewRuntime(Config{
		TimeStep:    time.Second,
		ScaleFactor: 2,
		MaxSteps:    5,
	}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		calls++
		return nil
	}, simpace.WithVirtualClock(vc))
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls != 5 {
		t.Errorf("Expected 5 calls, got %d", calls)
	}

	// Last step was sim time 4s at scale 2
	now, _ := vc.Now()
	if now != 8 {
		t.Errorf("Expected virtual clock at 8s, got %v", now)
	}
}

// TestStepFuncError tests that a failing step ends the run
func TestStepFuncError(t *testing.T) {
	boom := errors.New("boom")
	rt, err := NewRuntime(Config{ScaleFactor: 0}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		if simTime >= 0.03 {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	err = rt.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if rt.GetStepNumber() != 3 {
		t.Errorf("Expected 3 completed steps, got %d", rt.GetStepNumber())
	}
}

// TestStepFuncPanic tests panic recovery in the step function
func TestStepFuncPanic(t *testing.T) {
	rt, err := NewRuntime(Config{ScaleFactor: 0}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	err = rt.Run(context.Background())
	if !errors.Is(err, ErrStepPanicked) {
		t.Fatalf("Expected ErrStepPanicked, got %v", err)
	}
}

// TestClockFailure tests that a broken clock surfaces from Run
func TestClockFailure(t *testing.T) {
	clock := simpace.ClockFunc(func() (simpace.Reading, error) {
		return 0, errors.New("no clock")
	})
	rt, err := NewRuntime(Config{ScaleFactor: 1}, nil, simpace.WithClock(clock))
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := rt.Run(context.Background()); !errors.Is(err, simpace.ErrClockUnavailable) {
		t.Fatalf("Expected ErrClockUnavailable, got %v", err)
	}
}

// TestRunCancelled tests cancellation between steps
func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := NewRuntime(Config{ScaleFactor: 0}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		if simTime >= 0.05 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := rt.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if rt.GetStepNumber() != 6 {
		t.Errorf("Expected 6 steps before cancellation, got %d", rt.GetStepNumber())
	}
}

// TestStartStop tests the background runner and checks for leaked goroutines
func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rt, err := NewRuntime(Config{
		TimeStep:    5 * time.Millisecond,
		ScaleFactor: 1,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start runtime: %v", err)
	}
	if err := rt.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	time.Sleep(52 * time.Millisecond)

	if err := rt.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	// ~11 steps in ~52ms; a late wakeup of this goroutine only adds steps
	steps := rt.GetStepNumber()
	if steps < 8 {
		t.Errorf("Expected at least 8 steps, got %d", steps)
	}

	select {
	case <-rt.Done():
	default:
		t.Error("Done channel not closed after Stop")
	}
}

// TestBackgroundRunFinishes tests Done and Err for a bounded background run
func TestBackgroundRunFinishes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	vc := simpace.NewVirtualClock(0)
	rt, err := NewRuntime(Config{ScaleFactor: 1, MaxSteps: 100}, nil, simpace.WithVirtualClock(vc))
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	if rt.Done() != nil {
		t.Error("Done should be nil before Start")
	}
	if err := rt.Stop(); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start runtime: %v", err)
	}

	select {
	case <-rt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Background run did not finish")
	}

	if err := rt.Err(); err != nil {
		t.Errorf("Unexpected run error: %v", err)
	}
	if rt.GetStepNumber() != 100 {
		t.Errorf("Expected 100 steps, got %d", rt.GetStepNumber())
	}

	// A finished runtime can run again
	if err := rt.Run(context.Background()); err != nil {
		t.Errorf("Second run failed: %v", err)
	}
}

// TestRestartWithConcurrentStop tests that Stop racing a fresh Start never leaves a run behind
func TestRestartWithConcurrentStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	vc := simpace.NewVirtualClock(0)
	rt, err := NewRuntime(Config{ScaleFactor: 1}, nil, simpace.WithVirtualClock(vc))
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	for i := 0; i < 50; i++ {
		started := make(chan error, 1)
		go func() {
			started <- rt.Start(context.Background())
		}()
		if err := rt.Stop(); err != nil {
			t.Fatalf("Iteration %d: Stop returned error: %v", i, err)
		}
		if err := <-started; err != nil {
			t.Fatalf("Iteration %d: Start failed: %v", i, err)
		}

		// Once Start has returned, Stop must reach the run it published
		if err := rt.Stop(); err != nil {
			t.Fatalf("Iteration %d: Stop returned error: %v", i, err)
		}
		select {
		case <-rt.Done():
		default:
			t.Fatalf("Iteration %d: run still active after Stop", i)
		}
	}

	// Nothing is left running, so a foreground run is accepted
	rt.maxSteps = 3
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run after restarts failed: %v", err)
	}
	if rt.GetStepNumber() != 3 {
		t.Errorf("Expected 3 steps, got %d", rt.GetStepNumber())
	}
}
