// sim/simulator.go
package sim

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rtsim/edfsim/sim/trace"
)

// TickObserver receives every tick's outcome after it is applied.
// Observers must not mutate the scheduler or its tasks.
type TickObserver interface {
	ObserveTick(ev SchedulingEvent, d ControlDecision)
}

// Simulator is the simulation clock: it owns the scheduler, the controller
// and the idle counter, and drives them one tick at a time.
type Simulator struct {
	Clock     int64
	Horizon   int64
	IdleTicks int64

	Scheduler  *EDFScheduler
	Controller *DVFSController
	Tasks      []*Task // every task of the run, in admission order

	Trace   *trace.SimulationTrace
	Metrics *Metrics

	// Locker, when set, is held for the whole mutation sequence of each tick,
	// so an observer sharing the lock never sees a half-applied tick.
	Locker sync.Locker
	// Observers are notified after each tick, inside the lock.
	Observers []TickObserver
}

// NewSimulator creates a simulator for one run. tasks are admitted in slice order.
// Panics on an unknown dispatch policy or DVFS mode.
func NewSimulator(cfg SimConfig, tasks []*Task) *Simulator {
	s := &Simulator{
		Clock:      0,
		Horizon:    cfg.Horizon,
		Scheduler:  NewEDFScheduler(NewDispatchPolicy(cfg.DispatchPolicy), tasks),
		Controller: NewDVFSController(cfg.Controller),
		Tasks:      tasks,
		Trace:      trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel), Mode: string(cfg.Controller.Mode)}),
		Metrics:    NewMetrics(tasks),
	}
	return s
}

// Done reports whether the horizon has been reached.
func (sim *Simulator) Done() bool {
	return sim.Clock >= sim.Horizon
}

// Step runs one tick: scheduler step, controller step, then idle bookkeeping.
// It is a no-op returning zero values once the horizon is reached.
func (sim *Simulator) Step() (SchedulingEvent, ControlDecision) {
	if sim.Locker != nil {
		sim.Locker.Lock()
		defer sim.Locker.Unlock()
	}
	if sim.Done() {
		return SchedulingEvent{}, ControlDecision{}
	}

	now := sim.Clock
	ev := sim.Scheduler.Step(now)
	d := sim.Controller.Step(now, sim.IdleTicks, sim.Scheduler)
	if sim.Scheduler.Running() == nil {
		sim.IdleTicks++
	}

	sim.Metrics.RecordTick(ev, d)
	sim.Trace.RecordTick(trace.TickRecord{
		Clock:     now,
		Event:     string(ev.Kind),
		TaskID:    ev.TaskID,
		RunningID: ev.RunningID,
		Usage:     d.Usage,
		Slack:     d.Slack,
		IPS:       d.IPS,
		Action:    string(d.Action),
		Frequency: d.Frequency,
	})
	for _, o := range sim.Observers {
		o.ObserveTick(ev, d)
	}

	sim.Clock++
	return ev, d
}

// Run steps the clock until the horizon. Tasks still queued or running at the
// horizon are abandoned: they are reported neither as finished nor as missed.
func (sim *Simulator) Run() {
	logrus.Infof("[tick %07d] Simulation started: horizon=%d, mode=%s, tasks=%d",
		sim.Clock, sim.Horizon, sim.Controller.Mode(), len(sim.Tasks))
	for !sim.Done() {
		sim.Step()
	}
	sim.Metrics.Finalize(sim.Tasks)
	if sim.Trace.Config.Enabled() {
		sim.Metrics.EventCounts = trace.Summarize(sim.Trace).EventCounts
	}
	logrus.Infof("[tick %07d] Simulation ended: %d finished, %d missed, %d abandoned",
		sim.Clock, sim.Metrics.Finished, sim.Metrics.Missed, sim.Metrics.Abandoned)
}

// Simulate runs a fresh simulation of tasks under cfg and returns its trace and metrics.
func Simulate(cfg SimConfig, tasks []*Task) (*trace.SimulationTrace, *Metrics) {
	s := NewSimulator(cfg, tasks)
	s.Run()
	return s.Trace, s.Metrics
}
