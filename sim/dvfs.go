package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Mode selects the DVFS control policy.
type Mode string

const (
	ModeEnergySaving Mode = "energy-saving"
	ModePerformance  Mode = "performance"
)

// SlackInfinite is reported when neither a running task nor a queued task exists.
const SlackInfinite int64 = math.MaxInt64

// Thresholds used by the control policies.
const (
	energyUsageThreshold      = 0.8
	energySlackThreshold      = 5
	performanceUsageThreshold = 0.4
)

// FrequencyAction is the adjustment applied by one controller step.
type FrequencyAction string

const (
	ActionIncrease FrequencyAction = "increase"
	ActionDecrease FrequencyAction = "decrease"
	ActionHold     FrequencyAction = "hold"
)

// ControllerConfig holds the DVFS parameters, fixed for a run.
type ControllerConfig struct {
	Mode          Mode
	PerfThreshold float64 // Target instructions per second in performance mode
	IPC           float64 // Instructions per cycle
	MinFreq       float64
	MaxFreq       float64
	FreqStep      float64
}

// ControlDecision captures the metrics and outcome of one controller step.
type ControlDecision struct {
	Time      int64
	Usage     float64
	Slack     int64
	IPS       float64
	Action    FrequencyAction
	Frequency float64 // Frequency after the action
}

// DVFSController owns the simulated processor frequency.
// It reads scheduler state but never mutates it.
type DVFSController struct {
	config    ControllerConfig
	frequency float64
}

// NewDVFSController creates a controller. Energy-saving mode starts at the
// minimum frequency, performance mode at the maximum.
// Panics on an unknown mode, inverted bounds or a non-positive step.
func NewDVFSController(cfg ControllerConfig) *DVFSController {
	if cfg.MinFreq > cfg.MaxFreq {
		panic(fmt.Sprintf("NewDVFSController: min frequency %v exceeds max %v", cfg.MinFreq, cfg.MaxFreq))
	}
	if !(cfg.FreqStep > 0) || math.IsInf(cfg.FreqStep, 0) {
		panic(fmt.Sprintf("NewDVFSController: frequency step must be positive and finite, got %v", cfg.FreqStep))
	}
	c := &DVFSController{config: cfg}
	switch cfg.Mode {
	case ModeEnergySaving:
		c.frequency = cfg.MinFreq
	case ModePerformance:
		c.frequency = cfg.MaxFreq
	default:
		panic(fmt.Sprintf("unknown DVFS mode %q", cfg.Mode))
	}
	return c
}

// Frequency returns the current simulated frequency.
func (c *DVFSController) Frequency() float64 {
	return c.frequency
}

// Mode returns the active control policy.
func (c *DVFSController) Mode() Mode {
	return c.config.Mode
}

// IPS estimates throughput as frequency times instructions per cycle.
func (c *DVFSController) IPS() float64 {
	return c.frequency * c.config.IPC
}

// Usage is the fraction of elapsed ticks during which a task was running.
// Zero at tick 0.
func Usage(now, idle int64) float64 {
	if now <= 0 {
		return 0
	}
	return float64(now-idle) / float64(now)
}

// Slack is the distance from now to the running task's absolute deadline,
// or to the queue head's when nothing runs, or SlackInfinite when both are empty.
func Slack(running *Task, q *ReadyQueue, now int64) int64 {
	if running != nil {
		return running.AbsoluteDeadline() - now
	}
	if head := q.Peek(); head != nil {
		return head.AbsoluteDeadline() - now
	}
	return SlackInfinite
}

// Step evaluates the active policy once and moves the frequency at most one step.
func (c *DVFSController) Step(now, idle int64, sched *EDFScheduler) ControlDecision {
	d := ControlDecision{
		Time:   now,
		Usage:  Usage(now, idle),
		Slack:  Slack(sched.Running(), sched.Queue(), now),
		IPS:    c.IPS(),
		Action: ActionHold,
	}

	switch c.config.Mode {
	case ModeEnergySaving:
		if d.Usage > energyUsageThreshold || d.Slack < energySlackThreshold {
			d.Action = ActionIncrease
		} else if d.Usage < energyUsageThreshold && d.Slack > energySlackThreshold {
			d.Action = ActionDecrease
		}
	case ModePerformance:
		if d.IPS < c.config.PerfThreshold {
			d.Action = ActionIncrease
		} else if d.Usage < performanceUsageThreshold && d.IPS > c.config.PerfThreshold {
			d.Action = ActionDecrease
		}
	}

	switch d.Action {
	case ActionIncrease:
		c.increase()
	case ActionDecrease:
		c.decrease()
	}
	d.Frequency = c.frequency

	logrus.Debugf("[tick %07d] dvfs mode=%s usage=%.3f slack=%d ips=%.1f action=%s freq=%.2f",
		now, c.config.Mode, d.Usage, d.Slack, d.IPS, d.Action, d.Frequency)
	return d
}

// increase raises the frequency by one step, saturating at MaxFreq.
func (c *DVFSController) increase() {
	if c.frequency < c.config.MaxFreq {
		c.frequency = c.clamp(c.frequency + c.config.FreqStep)
	}
}

// decrease lowers the frequency by one step, saturating at MinFreq.
func (c *DVFSController) decrease() {
	if c.frequency > c.config.MinFreq {
		c.frequency = c.clamp(c.frequency - c.config.FreqStep)
	}
}

func (c *DVFSController) clamp(f float64) float64 {
	return math.Max(c.config.MinFreq, math.Min(f, c.config.MaxFreq))
}
