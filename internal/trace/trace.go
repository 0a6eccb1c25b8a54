// Package trace records pacing reports and persists them as JSON or YAML.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/comalice/simpace"
)

// ErrUnknownFormat is returned for paths without a .json, .yaml or .yml extension.
var ErrUnknownFormat = errors.New("unknown trace format")

// Entry is one recorded step.
type Entry struct {
	Step          uint64          `json:"step" yaml:"step"`
	CurrentTime   simpace.Reading `json:"current_time" yaml:"current_time"`
	StartTime     simpace.Reading `json:"start_time" yaml:"start_time"`
	TargetElapsed float64         `json:"target_elapsed" yaml:"target_elapsed"`
	Waited        float64         `json:"waited" yaml:"waited"` // seconds spent in the waiter
}

// Report returns the entry as a StepReport.
func (e Entry) Report() simpace.StepReport {
	return simpace.StepReport{
		CurrentTime:   e.CurrentTime,
		StartTime:     e.StartTime,
		TargetElapsed: e.TargetElapsed,
	}
}

// Trace is the persisted form of a run.
type Trace struct {
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
	Dropped     uint64  `json:"dropped" yaml:"dropped"`
	Steps       []Entry `json:"steps" yaml:"steps"`
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Write stores t at path, choosing the encoding from the extension.
// The file is replaced atomically so readers never see a partial trace.
func Write(path string, t Trace) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	case formatYAML:
		data, err = yaml.Marshal(t)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads a trace written by Write.
func Load(path string) (Trace, error) {
	f, err := formatOf(path)
	if err != nil {
		return Trace{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Trace{}, fmt.Errorf("read %s: %w", path, err)
	}

	var t Trace
	switch f {
	case formatJSON:
		if err := json.Unmarshal(data, &t); err != nil {
			return Trace{}, fmt.Errorf("json unmarshal: %w", err)
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return Trace{}, fmt.Errorf("yaml unmarshal: %w", err)
		}
	}
	return t, nil
}
