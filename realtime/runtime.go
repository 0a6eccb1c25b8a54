package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/simpace"
)

var (
	// ErrAlreadyRunning is returned by Start and Run while a run is in progress.
	ErrAlreadyRunning = errors.New("runtime already running")

	// ErrStepPanicked wraps a panic raised inside the StepFunc.
	ErrStepPanicked = errors.New("step function panicked")
)

// StepFunc advances the simulation by one step. It is called after the pacer
// has released simTime.
type StepFunc func(ctx context.Context, simTime float64, report simpace.StepReport) error

// Config configures the real-time runtime
type Config struct {
	TimeStep    time.Duration  // Simulated time between steps (default: 10ms)
	ScaleFactor float64        // Wall seconds per simulated second; 0 disables pacing
	Duration    time.Duration  // Simulated time to run for; 0 means unbounded
	MaxSteps    uint64         // Step limit; 0 means unbounded
	Logger      zerolog.Logger // Zero value discards
}

// Runtime drives a StepFunc through a simpace.Pacer.
type Runtime struct {
	pacer    *simpace.Pacer
	step     StepFunc
	timeStep time.Duration
	duration time.Duration
	maxSteps uint64
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stepNum uint64
	last    simpace.StepReport

	// Background run control
	cancel  context.CancelFunc
	stopped chan struct{}
	runErr  error
}

// NewRuntime creates a runtime. opts are passed to simpace.New, so clocks,
// waiters and observers are configured the same way as on a bare Pacer.
func NewRuntime(cfg Config, step StepFunc, opts ...simpace.Option) (*Runtime, error) {
	if cfg.TimeStep == 0 {
		cfg.TimeStep = 10 * time.Millisecond
	}
	if cfg.TimeStep < 0 {
		return nil, fmt.Errorf("time step must be positive, got %v", cfg.TimeStep)
	}
	if cfg.Duration < 0 {
		return nil, fmt.Errorf("duration must not be negative, got %v", cfg.Duration)
	}

	logger := cfg.Logger.With().Str("component", "realtime").Logger()
	opts = append([]simpace.Option{simpace.WithLogger(logger)}, opts...)

	pacer, err := simpace.New(cfg.ScaleFactor, opts...)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		pacer:    pacer,
		step:     step,
		timeStep: cfg.TimeStep,
		duration: cfg.Duration,
		maxSteps: cfg.MaxSteps,
		logger:   logger,
	}, nil
}

// Pacer returns the underlying pacer.
func (rt *Runtime) Pacer() *simpace.Pacer {
	return rt.pacer
}

// Run arms the pacer and steps until the run ends. It returns nil when
// Duration or MaxSteps is reached and ctx.Err() when cancelled.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.begin(); err != nil {
		return err
	}
	defer rt.end()

	return rt.loop(ctx)
}

// Start begins stepping in a background goroutine.
func (rt *Runtime) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	// Publish the run controls in the same critical section that marks the
	// runtime as running, so Stop never sees a stale channel for a live run.
	rt.mu.Lock()
	if err := rt.beginLocked(); err != nil {
		rt.mu.Unlock()
		cancel()
		return err
	}
	rt.cancel = cancel
	rt.stopped = stopped
	rt.runErr = nil
	rt.mu.Unlock()

	go func() {
		defer close(stopped)
		defer rt.end()
		defer cancel()

		err := rt.loop(runCtx)

		rt.mu.Lock()
		rt.runErr = err
		rt.mu.Unlock()
	}()

	return nil
}

// Stop cancels a background run and waits for the current step to finish.
// It returns the error that ended the run, ignoring the cancellation itself.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	cancel, stopped := rt.cancel, rt.stopped
	rt.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped

	return rt.Err()
}

// Done returns a channel closed when the background run exits, or nil if
// Start has not been called.
func (rt *Runtime) Done() <-chan struct{} {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopped
}

// Err returns the error that ended the background run. Cancellation is not
// reported as an error.
func (rt *Runtime) Err() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if errors.Is(rt.runErr, context.Canceled) {
		return nil
	}
	return rt.runErr
}

// GetStepNumber returns the number of completed steps
func (rt *Runtime) GetStepNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stepNum
}

// LastReport returns the report of the latest paced step.
func (rt *Runtime) LastReport() simpace.StepReport {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.last
}

func (rt *Runtime) begin() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.beginLocked()
}

// beginLocked marks a run as started. rt.mu must be held.
func (rt *Runtime) beginLocked() error {
	if rt.running {
		return ErrAlreadyRunning
	}
	rt.running = true
	rt.stepNum = 0
	rt.last = simpace.StepReport{}
	return nil
}

func (rt *Runtime) end() {
	rt.mu.Lock()
	rt.running = false
	rt.mu.Unlock()
}
