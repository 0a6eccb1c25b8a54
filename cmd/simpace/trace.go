package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/simpace/internal/trace"
)

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <file>",
		Short: "Summarize a recorded trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := trace.Load(args[0])
			if err != nil {
				return err
			}

			s := trace.Summarize(t)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scale factor:   %g\n", t.ScaleFactor)
			fmt.Fprintf(out, "steps:          %d (%d dropped)\n", s.Steps, t.Dropped)
			fmt.Fprintf(out, "early returns:  %d\n", s.Violations)
			fmt.Fprintf(out, "overshoot mean: %v\n", seconds(s.MeanOvershoot))
			fmt.Fprintf(out, "overshoot p99:  %v\n", seconds(s.P99Overshoot))
			fmt.Fprintf(out, "overshoot max:  %v\n", seconds(s.MaxOvershoot))
			fmt.Fprintf(out, "time waited:    %v\n", seconds(s.TotalWaited))
			fmt.Fprintf(out, "wall elapsed:   %v\n", seconds(s.WallElapsed))
			return nil
		},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
