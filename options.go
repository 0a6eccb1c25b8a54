package simpace

import (
	"time"

	"github.com/rs/zerolog"
)

// Observer receives every successful step. ObserveStep runs on the stepping
// goroutine right before Step returns, so implementations should be quick.
type Observer interface {
	ObserveStep(report StepReport, waited time.Duration)
}

// Option configures a Pacer.
type Option func(p *Pacer)

// WithClock configures the Pacer with a custom Clock. Default: MonotonicClock.
func WithClock(c Clock) Option {
	return func(p *Pacer) {
		p.clock = c
	}
}

// WithWaiter configures how the Pacer waits. Default: SpinWaiter.
func WithWaiter(w Waiter) Option {
	return func(p *Pacer) {
		p.waiter = w
	}
}

// WithVirtualClock drives the Pacer from vc and replaces waiting with jumping
// vc forward to each deadline. Steps return immediately.
func WithVirtualClock(vc *VirtualClock) Option {
	return func(p *Pacer) {
		p.clock = vc
		p.waiter = virtualWaiter{clock: vc}
	}
}

// WithLogger configures the Pacer logger. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pacer) {
		p.logger = l
	}
}

// WithObserver registers an Observer for successful steps.
// Passing several WithObserver options fans reports out to all of them.
func WithObserver(o Observer) Option {
	return func(p *Pacer) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}
