package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/comalice/simpace"
	"github.com/comalice/simpace/internal/config"
	"github.com/comalice/simpace/internal/log"
	"github.com/comalice/simpace/internal/metrics"
	"github.com/comalice/simpace/internal/physics"
	"github.com/comalice/simpace/internal/trace"
	"github.com/comalice/simpace/realtime"
)

type runFlags struct {
	configPath string
	scale      float64
	timeStep   time.Duration
	duration   time.Duration
	maxSteps   uint64
	clock      string
	wait       string
	tracePath  string
	metrics    string
	logLevel   string
	logFormat  string
	height     float64
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bouncing-ball simulation at paced speed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSimulation(ctx, cfg, f.height, cmd.ErrOrStderr())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fs.Float64Var(&f.scale, "scale", 1, "wall seconds per simulated second (0 disables pacing)")
	fs.DurationVar(&f.timeStep, "step", 10*time.Millisecond, "simulated time per step")
	fs.DurationVar(&f.duration, "duration", 2*time.Second, "simulated time to run")
	fs.Uint64Var(&f.maxSteps, "max-steps", 0, "stop after this many steps (0 = no limit)")
	fs.StringVar(&f.clock, "clock", config.ClockMonotonic, "clock source: monotonic or process-cpu")
	fs.StringVar(&f.wait, "wait", config.WaitSpin, "wait strategy: spin or hybrid")
	fs.StringVar(&f.tracePath, "trace", "", "write step reports to this .json or .yaml file")
	fs.StringVar(&f.metrics, "metrics", "", "serve Prometheus metrics on this address")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level")
	fs.StringVar(&f.logFormat, "log-format", "console", "log format: console or json")
	fs.Float64Var(&f.height, "height", 1, "initial drop height of the ball in meters")

	return cmd
}

// resolve loads the config file, if any, and applies explicitly set flags on top.
func (f *runFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("scale") {
		cfg.ScaleFactor = f.scale
	}
	if fs.Changed("step") {
		cfg.TimeStep = f.timeStep
	}
	if fs.Changed("duration") {
		cfg.Duration = f.duration
	}
	if fs.Changed("max-steps") {
		cfg.MaxSteps = f.maxSteps
	}
	if fs.Changed("clock") {
		cfg.Clock = f.clock
	}
	if fs.Changed("wait") {
		cfg.Wait.Mode = f.wait
	}
	if fs.Changed("trace") {
		cfg.Trace.Path = f.tracePath
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Listen = f.metrics
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// pacerOptions translates the clock and wait settings into pacer options.
func pacerOptions(cfg config.Config) []simpace.Option {
	var opts []simpace.Option

	switch cfg.Clock {
	case config.ClockProcessCPU:
		opts = append(opts, simpace.WithClock(simpace.ProcessCPUClock{}))
	default:
		opts = append(opts, simpace.WithClock(simpace.MonotonicClock{}))
	}

	switch cfg.Wait.Mode {
	case config.WaitHybrid:
		opts = append(opts, simpace.WithWaiter(simpace.HybridWaiter{SpinThreshold: cfg.Wait.SpinThreshold}))
	default:
		opts = append(opts, simpace.WithWaiter(simpace.SpinWaiter{}))
	}

	return opts
}

func runSimulation(ctx context.Context, cfg config.Config, height float64, logOut io.Writer) error {
	logger, err := log.New(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut})
	if err != nil {
		return err
	}

	opts := pacerOptions(cfg)

	var recorder *trace.Recorder
	if cfg.Trace.Path != "" {
		recorder = trace.NewRecorder(cfg.ScaleFactor, cfg.Trace.Limit)
		opts = append(opts, simpace.WithObserver(recorder))
	}

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			return err
		}
		opts = append(opts, simpace.WithObserver(collector))

		_, shutdown, err := serveMetrics(cfg.Metrics.Listen, reg, log.WithComponent(logger, "metrics"))
		if err != nil {
			return err
		}
		defer shutdown()
	}

	ball := physics.NewBall(height, 0.8)
	dt := cfg.TimeStep.Seconds()
	simLog := log.WithComponent(logger, "sim")
	lastSecond := -1
	atRest := false

	rt, err := realtime.NewRuntime(realtime.Config{
		TimeStep:    cfg.TimeStep,
		ScaleFactor: cfg.ScaleFactor,
		Duration:    cfg.Duration,
		MaxSteps:    cfg.MaxSteps,
		Logger:      logger,
	}, func(ctx context.Context, simTime float64, r simpace.StepReport) error {
		if ball.Integrate(dt) && !atRest {
			simLog.Info().
				Float64("sim_time", simTime).
				Int("bounce", ball.Bounces).
				Float64("speed", ball.Velocity).
				Msg("bounce")
		}
		if !atRest && ball.Resting() {
			atRest = true
			simLog.Info().Float64("sim_time", simTime).Int("bounces", ball.Bounces).Msg("ball at rest")
		}
		if s := int(simTime); s != lastSecond {
			lastSecond = s
			simLog.Debug().
				Float64("sim_time", simTime).
				Float64("height", ball.Height).
				Float64("energy", ball.Energy()).
				Float64("wall_elapsed", r.Elapsed()).
				Float64("overshoot", r.Overshoot()).
				Msg("progress")
		}
		return nil
	}, opts...)
	if err != nil {
		return err
	}

	runErr := rt.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Warn().Uint64("steps", rt.GetStepNumber()).Msg("interrupted")
		runErr = nil
	}

	if recorder != nil {
		if err := trace.Write(cfg.Trace.Path, recorder.Snapshot()); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info().Str("path", cfg.Trace.Path).Int("steps", recorder.Len()).Msg("trace written")
	}

	if runErr != nil {
		return runErr
	}

	logger.Info().
		Int("bounces", ball.Bounces).
		Float64("height", ball.Height).
		Float64("energy", ball.Energy()).
		Bool("resting", ball.Resting()).
		Float64("wall_elapsed", rt.LastReport().Elapsed()).
		Msg("done")
	return nil
}

// serveMetrics starts the metrics endpoint. It returns the bound address and
// a function that shuts the server down.
func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	bound := ln.Addr().String()
	logger.Info().Str("addr", bound).Msg("serving metrics")

	return bound, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("metrics shutdown")
		}
	}, nil
}
