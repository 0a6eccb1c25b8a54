// Package physics holds the toy model driven by the simpace demo.
package physics

import "math"

// Gravity in m/s^2.
const Gravity = 9.81

// Ball is a point mass bouncing on a floor at height 0.
type Ball struct {
	Height      float64 // m
	Velocity    float64 // m/s, positive is up
	Restitution float64 // fraction of speed kept per bounce
	Bounces     int
}

// NewBall drops a ball from height h.
func NewBall(h, restitution float64) *Ball {
	return &Ball{Height: h, Restitution: restitution}
}

// Integrate advances the ball by dt seconds with semi-implicit Euler and
// reports whether it bounced during the step.
func (b *Ball) Integrate(dt float64) bool {
	b.Velocity -= Gravity * dt
	b.Height += b.Velocity * dt

	if b.Height > 0 {
		return false
	}

	b.Height = -b.Height * b.Restitution
	b.Velocity = -b.Velocity * b.Restitution
	b.Bounces++
	return true
}

// Energy returns the mechanical energy per unit mass.
func (b *Ball) Energy() float64 {
	return Gravity*b.Height + 0.5*b.Velocity*b.Velocity
}

// Resting reports whether the ball has effectively stopped.
func (b *Ball) Resting() bool {
	return b.Height < 1e-3 && math.Abs(b.Velocity) < 1e-2
}
