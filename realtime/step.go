package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/simpace"
)

// loop is the main step execution loop
func (rt *Runtime) loop(ctx context.Context) error {
	if err := rt.pacer.Initialize(); err != nil {
		return err
	}

	rt.logger.Info().
		Dur("time_step", rt.timeStep).
		Float64("scale_factor", rt.pacer.ScaleFactor()).
		Dur("duration", rt.duration).
		Uint64("max_steps", rt.maxSteps).
		Msg("simulation started")

	for k := uint64(0); ; k++ {
		if rt.maxSteps > 0 && k >= rt.maxSteps {
			break
		}
		if rt.duration > 0 && time.Duration(k)*rt.timeStep > rt.duration {
			break
		}

		select {
		case <-ctx.Done():
			rt.logger.Info().Uint64("steps", k).Msg("simulation cancelled")
			return ctx.Err()
		default:
		}

		if err := rt.processStep(ctx, k); err != nil {
			rt.logger.Error().Err(err).Uint64("step", k).Msg("simulation aborted")
			return err
		}
	}

	rt.logger.Info().Uint64("steps", rt.GetStepNumber()).Msg("simulation finished")
	return nil
}

// processStep paces step k and runs the step function
func (rt *Runtime) processStep(ctx context.Context, k uint64) error {
	simTime := (time.Duration(k) * rt.timeStep).Seconds()

	report, err := rt.pacer.Step(simTime)
	if err != nil {
		return fmt.Errorf("step %d: %w", k, err)
	}

	rt.mu.Lock()
	rt.last = report
	rt.mu.Unlock()

	if err := rt.runStepFunc(ctx, simTime, report); err != nil {
		return fmt.Errorf("step %d: %w", k, err)
	}

	rt.mu.Lock()
	rt.stepNum++
	rt.mu.Unlock()
	return nil
}

// runStepFunc calls the step function with panic recovery
func (rt *Runtime) runStepFunc(ctx context.Context, simTime float64, report simpace.StepReport) (err error) {
	if rt.step == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()

	return rt.step(ctx, simTime, report)
}
