// Package sim provides the discrete-time EDF scheduling and DVFS simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - task.go: Task lifecycle (ready → running → finished | missed) and derived deadline
//   - scheduler.go: EDF admission, preemption, release and the dispatch policies
//   - dvfs.go: usage/slack/IPS metrics and the two frequency control modes
//   - simulator.go: the tick loop that drives scheduler, controller and bookkeeping
//
// # Architecture
//
// Each tick runs EDFScheduler.Step, then DVFSController.Step, then idle
// accounting. The scheduler is the only component that mutates tasks, the
// ready queue or the running slot; the controller reads them and mutates only
// the frequency. Frequency is observational: work advances one unit per
// running tick regardless of the frequency level.
//
// Sub-packages:
//   - sim/trace/: per-tick records, run summaries and the console text renderer
//   - sim/telemetry/: Prometheus export of tick outcomes
//
// # Key Interfaces
//   - DispatchPolicy: choose the queued task eligible to take the processor
//   - TickObserver: receive each tick's scheduling event and controller decision
package sim
