package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioBundle is the YAML form of a run: controller parameters plus the task set.
// Nil pointer fields mean "not set in YAML"; ToSimConfig fills them from defaults.
type ScenarioBundle struct {
	Mode           string          `yaml:"mode"`
	PerfThreshold  *float64        `yaml:"perf_threshold"`
	IPC            *float64        `yaml:"ipc"`
	Horizon        *int64          `yaml:"horizon"`
	DispatchPolicy string          `yaml:"dispatch_policy"`
	Frequency      FrequencyConfig `yaml:"frequency"`
	Tasks          []TaskSpec      `yaml:"tasks"`
}

// FrequencyConfig holds the frequency bounds and step size.
type FrequencyConfig struct {
	Min  *float64 `yaml:"min"`
	Max  *float64 `yaml:"max"`
	Step *float64 `yaml:"step"`
}

// TaskSpec describes one task. ID 0 means "assign the next free ID".
type TaskSpec struct {
	ID         int    `yaml:"id"`
	Priority   string `yaml:"priority"`
	Deadline   int64  `yaml:"deadline"`
	Activation int64  `yaml:"activation"`
	ExecTime   int64  `yaml:"exec_time"`
}

// ValidModes is the set of recognized DVFS mode names.
var ValidModes = map[string]bool{"": true, string(ModeEnergySaving): true, string(ModePerformance): true}

// ValidDispatchPolicies is the set of recognized dispatch policy names.
// Shared by Validate() and NewDispatchPolicy() to avoid duplication.
var ValidDispatchPolicies = map[string]bool{"": true, "edf-head": true, "edf-eligible": true}

// IsValidDispatchPolicy returns true if name is a recognized dispatch policy.
func IsValidDispatchPolicy(name string) bool {
	return ValidDispatchPolicies[name]
}

// LoadScenarioBundle reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenarioBundle(path string) (*ScenarioBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenarioBundle(data)
}

// ParseScenarioBundle parses YAML scenario data with strict field checking.
func ParseScenarioBundle(data []byte) (*ScenarioBundle, error) {
	var bundle ScenarioBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &bundle, nil
}

// Validate checks names, parameter ranges and task definitions.
func (b *ScenarioBundle) Validate() error {
	if !ValidModes[b.Mode] {
		return fmt.Errorf("unknown mode %q; valid: energy-saving, performance", b.Mode)
	}
	if !ValidDispatchPolicies[b.DispatchPolicy] {
		return fmt.Errorf("unknown dispatch policy %q; valid: edf-head, edf-eligible", b.DispatchPolicy)
	}
	if b.Horizon != nil && *b.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", *b.Horizon)
	}
	if b.PerfThreshold != nil {
		if err := validateFiniteNonNegative("perf_threshold", *b.PerfThreshold); err != nil {
			return err
		}
	}
	if b.IPC != nil {
		if err := validateFinitePositive("ipc", *b.IPC); err != nil {
			return err
		}
	}
	if b.Frequency.Step != nil {
		if err := validateFinitePositive("frequency.step", *b.Frequency.Step); err != nil {
			return err
		}
	}
	if b.Frequency.Min != nil {
		if err := validateFinitePositive("frequency.min", *b.Frequency.Min); err != nil {
			return err
		}
	}
	if b.Frequency.Max != nil {
		if err := validateFinitePositive("frequency.max", *b.Frequency.Max); err != nil {
			return err
		}
	}
	minFreq, maxFreq := valueOr(b.Frequency.Min, DefaultMinFreq), valueOr(b.Frequency.Max, DefaultMaxFreq)
	if minFreq > maxFreq {
		return fmt.Errorf("frequency.min (%v) must not exceed frequency.max (%v)", minFreq, maxFreq)
	}
	seen := make(map[int]bool, len(b.Tasks))
	for i, t := range b.Tasks {
		if err := validateTask(&t, i); err != nil {
			return err
		}
		if t.ID != 0 {
			if seen[t.ID] {
				return fmt.Errorf("task[%d]: duplicate id %d", i, t.ID)
			}
			seen[t.ID] = true
		}
	}
	return nil
}

func validateTask(t *TaskSpec, idx int) error {
	prefix := fmt.Sprintf("task[%d]", idx)
	if t.ID < 0 {
		return fmt.Errorf("%s: id must be positive, got %d", prefix, t.ID)
	}
	if !IsValidPriority(t.Priority) {
		return fmt.Errorf("%s: unknown priority %q; valid: low, normal, high", prefix, t.Priority)
	}
	if t.Deadline <= 0 {
		return fmt.Errorf("%s: deadline must be positive, got %d", prefix, t.Deadline)
	}
	if t.Activation < 0 {
		return fmt.Errorf("%s: activation must be non-negative, got %d", prefix, t.Activation)
	}
	if t.ExecTime <= 0 {
		return fmt.Errorf("%s: exec_time must be positive, got %d", prefix, t.ExecTime)
	}
	return nil
}

// ToSimConfig resolves the bundle into run parameters, filling unset fields from defaults.
func (b *ScenarioBundle) ToSimConfig() SimConfig {
	mode := Mode(b.Mode)
	if mode == "" {
		mode = ModeEnergySaving
	}
	policy := b.DispatchPolicy
	if policy == "" {
		policy = "edf-head"
	}
	return SimConfig{
		Horizon:        valueOr(b.Horizon, DefaultHorizon),
		DispatchPolicy: policy,
		Controller: ControllerConfig{
			Mode:          mode,
			PerfThreshold: valueOr(b.PerfThreshold, DefaultPerfThreshold),
			IPC:           valueOr(b.IPC, DefaultIPC),
			MinFreq:       valueOr(b.Frequency.Min, DefaultMinFreq),
			MaxFreq:       valueOr(b.Frequency.Max, DefaultMaxFreq),
			FreqStep:      valueOr(b.Frequency.Step, DefaultFreqStep),
		},
	}
}

// BuildTasks creates the task set in file order.
// Tasks without an explicit ID get the next integer not used by any other task, starting at 1.
func (b *ScenarioBundle) BuildTasks() []*Task {
	used := make(map[int]bool, len(b.Tasks))
	for _, t := range b.Tasks {
		used[t.ID] = true
	}
	next := 1
	tasks := make([]*Task, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		id := t.ID
		if id == 0 {
			for used[next] {
				next++
			}
			id = next
			used[id] = true
		}
		tasks = append(tasks, NewTask(id, PriorityClass(t.Priority), t.Deadline, t.Activation, t.ExecTime))
	}
	return tasks
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
