// Defines the scheduling events produced by each EDF scheduler step.

package sim

// EventKind identifies the outcome of one scheduler step.
// The string values are recorded in trace.TickRecord.Event; trace.WriteText
// matches "finished" and "deadline-missed" literally, so keep both in sync.
type EventKind string

const (
	// EventFinished: the running task executed all of its units and was released.
	EventFinished EventKind = "finished"
	// EventDeadlineMissed: the running task reached its absolute deadline unfinished and was released.
	EventDeadlineMissed EventKind = "deadline-missed"
	// EventPreempted: an activated task with an earlier deadline took the slot;
	// the previous task went back to the ready queue.
	EventPreempted EventKind = "preempted"
	// EventDispatched: the slot was empty and a queued task was installed.
	EventDispatched EventKind = "dispatched"
	// EventRunning: the running task kept the slot.
	EventRunning EventKind = "running"
	// EventIdle: nothing ran this tick.
	EventIdle EventKind = "idle"
)

// NoTask is the task ID reported when an event concerns no task.
const NoTask = 0

// SchedulingEvent is the result of EDFScheduler.Step.
// TaskID is the task the event is about: the released task for Finished and
// DeadlineMissed, the displaced task for Preempted, and the installed task for
// Dispatched and Running. RunningID is the task holding the slot once the step
// completes, or NoTask when the processor is idle.
type SchedulingEvent struct {
	Time      int64
	Kind      EventKind
	TaskID    int
	RunningID int
}

// Idle reports whether the processor ran nothing after this step.
func (e SchedulingEvent) Idle() bool {
	return e.RunningID == NoTask
}
