// Defines the Task struct that models a simulated real-time thread.
// Tracks static timing attributes and the number of work units executed so far.

package sim

import (
	"fmt"
)

// PriorityClass is the informational priority of a task.
// EDF ordering never consults it; it is carried through to traces and results.
type PriorityClass string

const (
	PriorityLow    PriorityClass = "low"
	PriorityNormal PriorityClass = "normal"
	PriorityHigh   PriorityClass = "high"
)

// validPriorities maps accepted priority class names. Empty defaults to normal.
var validPriorities = map[PriorityClass]bool{
	PriorityLow: true, PriorityNormal: true, PriorityHigh: true, "": true,
}

// IsValidPriority returns true if name is a recognized priority class.
func IsValidPriority(name string) bool {
	return validPriorities[PriorityClass(name)]
}

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	StateReady    TaskState = "ready"
	StateRunning  TaskState = "running"
	StateFinished TaskState = "finished"
	StateMissed   TaskState = "missed"
)

// Task models a single real-time thread:
// - relative deadline and activation time (absolute deadline derived once)
// - execution time required at nominal frequency
// - executed units, advanced only while the task holds the running slot
type Task struct {
	ID             int           // Unique identifier within a run
	Priority       PriorityClass // low, normal, high (informational only)
	Deadline       int64         // Relative deadline in ticks
	ActivationTime int64         // First tick at which the task may run
	ExecTime       int64         // Units of work required to finish

	State    TaskState // ready, running, finished, missed
	Executed int64     // Units of work completed so far

	absoluteDeadline int64
}

// NewTask creates a task in the ready state.
// The absolute deadline is computed here and never recomputed.
// Panics on a non-positive ID, deadline or execution time, or a negative activation time.
func NewTask(id int, priority PriorityClass, deadline, activation, execTime int64) *Task {
	if id <= NoTask {
		panic(fmt.Sprintf("NewTask: id must be positive, got %d", id))
	}
	if deadline <= 0 {
		panic(fmt.Sprintf("NewTask(%d): deadline must be positive, got %d", id, deadline))
	}
	if activation < 0 {
		panic(fmt.Sprintf("NewTask(%d): activation must be non-negative, got %d", id, activation))
	}
	if execTime <= 0 {
		panic(fmt.Sprintf("NewTask(%d): exec time must be positive, got %d", id, execTime))
	}
	if priority == "" {
		priority = PriorityNormal
	}
	return &Task{
		ID:               id,
		Priority:         priority,
		Deadline:         deadline,
		ActivationTime:   activation,
		ExecTime:         execTime,
		State:            StateReady,
		absoluteDeadline: activation + deadline,
	}
}

// AbsoluteDeadline returns activation time plus relative deadline.
func (t *Task) AbsoluteDeadline() int64 {
	return t.absoluteDeadline
}

// Finished reports whether every required unit has been executed.
func (t *Task) Finished() bool {
	return t.Executed == t.ExecTime
}

// Activated reports whether the task may be dispatched at the given tick.
func (t *Task) Activated(now int64) bool {
	return t.ActivationTime <= now
}

// advance completes one unit of work. It never moves past ExecTime.
func (t *Task) advance() {
	if t.Executed < t.ExecTime {
		t.Executed++
	}
}

func (t Task) String() string {
	return fmt.Sprintf("Task: (ID: %d, State: %s, Executed: %d/%d, AbsoluteDeadline: %d)", t.ID, t.State, t.Executed, t.ExecTime, t.absoluteDeadline)
}
