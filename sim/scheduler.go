package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DispatchPolicy picks which queued task, if any, may take the processor at a tick.
// Candidate returns an index into q.Items(), or -1 when no task is eligible.
// Implementations MUST NOT modify the queue.
type DispatchPolicy interface {
	Candidate(q *ReadyQueue, now int64) int
}

// HeadOnlyPolicy considers only the head of the ready queue.
// A head that is not yet activated blocks every task behind it, even tasks
// whose activation time has passed, so the processor can sit idle while
// eligible work waits. This is the default behavior.
type HeadOnlyPolicy struct{}

func (h *HeadOnlyPolicy) Candidate(q *ReadyQueue, now int64) int {
	head := q.Peek()
	if head == nil || !head.Activated(now) {
		return -1
	}
	return 0
}

// EligibleScanPolicy picks the earliest-deadline task whose activation time
// has passed, scanning past un-activated tasks at the head of the queue.
type EligibleScanPolicy struct{}

func (e *EligibleScanPolicy) Candidate(q *ReadyQueue, now int64) int {
	for i, t := range q.Items() {
		if t.Activated(now) {
			return i
		}
	}
	return -1
}

// NewDispatchPolicy creates a DispatchPolicy by name.
// Valid names: "edf-head" (default), "edf-eligible".
// Empty string defaults to HeadOnlyPolicy.
// Panics on unrecognized names.
func NewDispatchPolicy(name string) DispatchPolicy {
	if !IsValidDispatchPolicy(name) {
		panic(fmt.Sprintf("unknown dispatch policy %q", name))
	}
	switch name {
	case "", "edf-head":
		return &HeadOnlyPolicy{}
	case "edf-eligible":
		return &EligibleScanPolicy{}
	default:
		panic(fmt.Sprintf("unhandled dispatch policy %q", name))
	}
}

// EDFScheduler owns the ready queue and the running slot.
// All task mutations happen inside Step.
type EDFScheduler struct {
	queue   *ReadyQueue
	running *Task
	policy  DispatchPolicy

	// Released holds every task removed from the simulation, in release order.
	Released []*Task
}

// NewEDFScheduler creates a scheduler whose ready queue holds tasks.
// Tasks are inserted in slice order, so equal deadlines run in that order.
// Panics on a nil task, a non-positive ID or a duplicate ID.
func NewEDFScheduler(policy DispatchPolicy, tasks []*Task) *EDFScheduler {
	seen := make(map[int]bool, len(tasks))
	for i, t := range tasks {
		if t == nil {
			panic(fmt.Sprintf("NewEDFScheduler: task[%d] is nil", i))
		}
		if t.ID <= NoTask {
			panic(fmt.Sprintf("NewEDFScheduler: task[%d] has non-positive id %d", i, t.ID))
		}
		if seen[t.ID] {
			panic(fmt.Sprintf("NewEDFScheduler: duplicate task id %d", t.ID))
		}
		seen[t.ID] = true
	}
	if policy == nil {
		policy = &HeadOnlyPolicy{}
	}
	s := &EDFScheduler{
		queue:  &ReadyQueue{},
		policy: policy,
	}
	for _, t := range tasks {
		s.queue.Insert(t)
	}
	logrus.Debugf("Ready queue after admission: %v", s.queue)
	return s
}

// Queue returns the ready queue. Callers must treat it as read-only.
func (s *EDFScheduler) Queue() *ReadyQueue {
	return s.queue
}

// Running returns the task holding the running slot, or nil.
func (s *EDFScheduler) Running() *Task {
	return s.running
}

// Step performs one tick of EDF scheduling:
//   - release the running task if it finished or reached its deadline
//   - otherwise preempt it if an eligible queued task has a strictly earlier deadline
//   - with an empty slot, dispatch the eligible queued task
//   - advance whichever task holds the slot by one unit
//
// A slot emptied by release stays empty until the next tick.
func (s *EDFScheduler) Step(now int64) SchedulingEvent {
	ev := SchedulingEvent{Time: now, Kind: EventIdle, TaskID: NoTask}

	if r := s.running; r != nil {
		switch {
		case r.Finished():
			logrus.Infof("[tick %07d] task %d finished", now, r.ID)
			ev.Kind, ev.TaskID = EventFinished, r.ID
			s.release(StateFinished)
		case r.AbsoluteDeadline() <= now:
			logrus.Infof("[tick %07d] task %d missed deadline %d (%d/%d units)", now, r.ID, r.AbsoluteDeadline(), r.Executed, r.ExecTime)
			ev.Kind, ev.TaskID = EventDeadlineMissed, r.ID
			s.release(StateMissed)
		default:
			ev.Kind, ev.TaskID = EventRunning, r.ID
			if i := s.policy.Candidate(s.queue, now); i >= 0 && s.queue.Items()[i].AbsoluteDeadline() < r.AbsoluteDeadline() {
				next := s.queue.RemoveAt(i)
				s.queue.Insert(r)
				s.install(next)
				logrus.Infof("[tick %07d] task %d preempted by task %d", now, r.ID, next.ID)
				ev.Kind = EventPreempted
			}
		}
	} else if i := s.policy.Candidate(s.queue, now); i >= 0 {
		next := s.queue.RemoveAt(i)
		s.install(next)
		logrus.Infof("[tick %07d] task %d dispatched", now, next.ID)
		ev.Kind, ev.TaskID = EventDispatched, next.ID
	}

	if s.running != nil {
		s.running.advance()
		ev.RunningID = s.running.ID
	}
	return ev
}

func (s *EDFScheduler) install(t *Task) {
	t.State = StateRunning
	s.running = t
}

func (s *EDFScheduler) release(state TaskState) {
	s.running.State = state
	s.Released = append(s.Released, s.running)
	s.running = nil
}
