package trace

import (
	"math"
	"sort"
)

// Stats summarizes how closely a run tracked its targets.
type Stats struct {
	Steps         int
	Violations    int     // steps that returned before their target
	MeanOvershoot float64 // seconds
	P99Overshoot  float64 // seconds
	MaxOvershoot  float64 // seconds
	TotalWaited   float64 // seconds
	WallElapsed   float64 // seconds between start and the last step
}

// Summarize computes Stats for t.
func Summarize(t Trace) Stats {
	s := Stats{Steps: len(t.Steps)}
	if s.Steps == 0 {
		return s
	}

	overshoots := make([]float64, 0, len(t.Steps))
	var sum float64
	for _, e := range t.Steps {
		o := e.Report().Overshoot()
		if o < 0 {
			s.Violations++
		}
		overshoots = append(overshoots, o)
		sum += o
		s.TotalWaited += e.Waited
	}

	sort.Float64s(overshoots)
	s.MeanOvershoot = sum / float64(s.Steps)
	s.MaxOvershoot = overshoots[len(overshoots)-1]
	idx := int(math.Ceil(0.99*float64(len(overshoots)))) - 1
	s.P99Overshoot = overshoots[max(idx, 0)]
	s.WallElapsed = t.Steps[len(t.Steps)-1].Report().Elapsed()

	return s
}
