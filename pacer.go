package simpace

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// PacingState is the only value that survives between Step calls.
// It belongs to exactly one Pacer and is never shared.
type PacingState struct {
	startTime Reading
	armed     bool
}

// Pacer holds a simulation back until wall-clock time catches up with
// scaled simulated time.
//
// A Pacer is not safe for concurrent use: Initialize and Step are meant to be
// called from the simulation's own goroutine. Independent Pacers do not
// interact.
type Pacer struct {
	scale     float64
	clock     Clock
	waiter    Waiter
	logger    zerolog.Logger
	observers []Observer

	state PacingState
}

// New creates a Pacer with the given scale factor. The scale factor is the
// number of wall-clock seconds one simulated second should take; it must be
// finite and non-negative and cannot be changed afterwards.
func New(scale float64, opts ...Option) (*Pacer, error) {
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScaleFactor, scale)
	}

	p := &Pacer{
		scale:  scale,
		clock:  MonotonicClock{},
		waiter: SpinWaiter{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.clock == nil || p.waiter == nil {
		return nil, fmt.Errorf("simpace: nil clock or waiter")
	}
	if vw, ok := p.waiter.(virtualWaiter); ok && p.clock != Clock(vw.clock) {
		return nil, fmt.Errorf("simpace: %w", errForeignClock)
	}

	return p, nil
}

// ScaleFactor returns the configured scale factor.
func (p *Pacer) ScaleFactor() float64 {
	return p.scale
}

// Initialized reports whether Initialize has succeeded at least once.
func (p *Pacer) Initialized() bool {
	return p.state.armed
}

// Initialize captures the reference start time. Calling it again re-arms the
// pacer: later steps are measured from the newest call. If the clock cannot be
// read the previous state is kept.
func (p *Pacer) Initialize() error {
	now, err := p.clock.Now()
	if err != nil {
		err = clockError(err)
		p.logger.Error().Err(err).Msg("initialize failed")
		return err
	}

	rearm := p.state.armed
	p.state = PacingState{startTime: now, armed: true}

	p.logger.Debug().
		Float64("start_time", float64(now)).
		Float64("scale_factor", p.scale).
		Bool("rearm", rearm).
		Msg("pacer armed")
	return nil
}

// Step blocks until at least simulatedTime*ScaleFactor seconds of clock time
// have passed since Initialize, then reports the readings involved.
//
// The wait cannot be cancelled. With the default SpinWaiter the goroutine
// spins the whole time. A target of zero or less returns after a single clock
// read. Callers that need monotonic pacing must feed monotonic simulated times.
func (p *Pacer) Step(simulatedTime float64) (StepReport, error) {
	if !p.state.armed {
		return StepReport{}, ErrUninitializedPacer
	}

	target := simulatedTime * p.scale
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return StepReport{}, fmt.Errorf("%w: %v scaled by %v", ErrInvalidSimTime, simulatedTime, p.scale)
	}

	began := time.Now()
	now, err := p.waiter.Wait(p.clock, p.state.startTime, target)
	if err != nil {
		err = clockError(err)
		p.logger.Error().Err(err).Float64("sim_time", simulatedTime).Msg("step aborted")
		return StepReport{}, err
	}
	waited := time.Since(began)

	report := StepReport{
		CurrentTime:   now,
		StartTime:     p.state.startTime,
		TargetElapsed: target,
	}
	for _, o := range p.observers {
		o.ObserveStep(report, waited)
	}

	p.logger.Trace().
		Float64("sim_time", simulatedTime).
		Float64("target", target).
		Float64("overshoot", report.Overshoot()).
		Dur("waited", waited).
		Msg("step")
	return report, nil
}
