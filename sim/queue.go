// Implements the ReadyQueue, which holds all tasks that are not running.
// Tasks are inserted before the run and whenever a running task is preempted.

package sim

import (
	"fmt"
	"sort"
	"strings"
)

// ReadyQueue holds tasks waiting for the processor, ordered by absolute deadline.
// Ties keep insertion order: the task inserted first stays ahead.
type ReadyQueue struct {
	queue []*Task
}

// Insert adds a task to the queue and restores deadline order.
// Panics if the task is nil or already queued.
func (rq *ReadyQueue) Insert(t *Task) {
	if t == nil {
		panic("Insert: task must not be nil")
	}
	for _, q := range rq.queue {
		if q == t {
			panic(fmt.Sprintf("Insert: task %d is already queued", t.ID))
		}
	}
	t.State = StateReady
	rq.queue = append(rq.queue, t)
	sort.SliceStable(rq.queue, func(i, j int) bool {
		return rq.queue[i].AbsoluteDeadline() < rq.queue[j].AbsoluteDeadline()
	})
}

func (rq *ReadyQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, t := range rq.queue {
		sb.WriteString(fmt.Sprint(t.ID))
		if i < len(rq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of queued tasks.
func (rq *ReadyQueue) Len() int {
	return len(rq.queue)
}

// Peek returns the task with the earliest absolute deadline without removing it.
// Returns nil if the queue is empty.
func (rq *ReadyQueue) Peek() *Task {
	if len(rq.queue) == 0 {
		return nil
	}
	return rq.queue[0]
}

// Items returns the queue contents in deadline order.
// The returned slice is the queue's internal storage; callers MUST NOT modify it.
func (rq *ReadyQueue) Items() []*Task {
	return rq.queue
}

// PopFront removes and returns the head of the queue, or nil if it is empty.
func (rq *ReadyQueue) PopFront() *Task {
	return rq.RemoveAt(0)
}

// RemoveAt removes and returns the task at index i, or nil if i is out of range.
func (rq *ReadyQueue) RemoveAt(i int) *Task {
	if i < 0 || i >= len(rq.queue) {
		return nil
	}
	t := rq.queue[i]
	rq.queue = append(rq.queue[:i], rq.queue[i+1:]...)
	return t
}
