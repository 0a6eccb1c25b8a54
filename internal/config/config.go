// Package config loads the YAML configuration of the simpace command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Clock names accepted in Config.Clock.
const (
	ClockMonotonic  = "monotonic"
	ClockProcessCPU = "process-cpu"
)

// Wait modes accepted in WaitConfig.Mode.
const (
	WaitSpin   = "spin"
	WaitHybrid = "hybrid"
)

// Config is the on-disk configuration.
type Config struct {
	ScaleFactor float64       `yaml:"scale_factor"`
	TimeStep    time.Duration `yaml:"time_step"`
	Duration    time.Duration `yaml:"duration"`
	MaxSteps    uint64        `yaml:"max_steps"`
	Clock       string        `yaml:"clock"`
	Wait        WaitConfig    `yaml:"wait"`
	Log         LogConfig     `yaml:"log"`
	Trace       TraceConfig   `yaml:"trace"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// WaitConfig selects the waiting strategy.
type WaitConfig struct {
	Mode          string        `yaml:"mode"`
	SpinThreshold time.Duration `yaml:"spin_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TraceConfig configures step report recording.
type TraceConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ScaleFactor: 1,
		TimeStep:    10 * time.Millisecond,
		Duration:    2 * time.Second,
		Clock:       ClockMonotonic,
		Wait: WaitConfig{
			Mode:          WaitSpin,
			SpinThreshold: 2 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path on top of Default and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and combinations.
func (c Config) Validate() error {
	var errs []error

	if c.ScaleFactor < 0 || math.IsNaN(c.ScaleFactor) || math.IsInf(c.ScaleFactor, 0) {
		errs = append(errs, fmt.Errorf("scale_factor: must be finite and >= 0, got %v", c.ScaleFactor))
	}
	if c.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("time_step: must be positive, got %v", c.TimeStep))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration: must not be negative, got %v", c.Duration))
	}
	if c.Duration == 0 && c.MaxSteps == 0 {
		errs = append(errs, errors.New("duration/max_steps: at least one bound is required"))
	}

	switch c.Clock {
	case ClockMonotonic, ClockProcessCPU:
	default:
		errs = append(errs, fmt.Errorf("clock: unknown clock %q", c.Clock))
	}

	switch c.Wait.Mode {
	case WaitSpin:
	case WaitHybrid:
		if c.Wait.SpinThreshold < 0 {
			errs = append(errs, fmt.Errorf("wait.spin_threshold: must not be negative, got %v", c.Wait.SpinThreshold))
		}
		// CPU time stands still while the process sleeps.
		if c.Clock == ClockProcessCPU {
			errs = append(errs, errors.New("wait.mode: hybrid waiting cannot be used with the process-cpu clock"))
		}
	default:
		errs = append(errs, fmt.Errorf("wait.mode: unknown mode %q", c.Wait.Mode))
	}

	if c.Trace.Limit < 0 {
		errs = append(errs, fmt.Errorf("trace.limit: must not be negative, got %d", c.Trace.Limit))
	}

	return errors.Join(errs...)
}
