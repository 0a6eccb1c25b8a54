package simpace

// StepReport is the result of one Step call. It is a plain value, recomputed on every call.
type StepReport struct {
	// CurrentTime is the last clock reading taken while waiting.
	CurrentTime Reading `json:"current_time" yaml:"current_time"`

	// StartTime is the reference reading captured by Initialize.
	StartTime Reading `json:"start_time" yaml:"start_time"`

	// TargetElapsed is simulatedTime * ScaleFactor, in seconds.
	TargetElapsed float64 `json:"target_elapsed" yaml:"target_elapsed"`
}

// Elapsed returns the wall time between StartTime and CurrentTime in seconds.
func (r StepReport) Elapsed() float64 {
	return r.CurrentTime.Sub(r.StartTime)
}

// Overshoot returns how far past the target the step returned, in seconds.
// It is never negative for a report returned by Step.
func (r StepReport) Overshoot() float64 {
	return r.Elapsed() - r.TargetElapsed
}

// Outputs returns the report as the flat vector [current, start, target].
func (r StepReport) Outputs() [3]float64 {
	return [3]float64{float64(r.CurrentTime), float64(r.StartTime), r.TargetElapsed}
}
