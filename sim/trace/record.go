// Package trace provides per-tick recording for EDF/DVFS simulation runs.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TickRecord captures the scheduling outcome and controller decision of one tick.
type TickRecord struct {
	Clock     int64
	Event     string // scheduling event kind (finished, deadline-missed, preempted, dispatched, running, idle)
	TaskID    int    // task the event is about; 0 when none
	RunningID int    // task holding the slot after the step; 0 when idle

	Usage     float64
	Slack     int64
	IPS       float64
	Action    string  // increase, decrease, hold
	Frequency float64 // frequency after the controller step
}

// Idle reports whether nothing ran during the tick.
func (r TickRecord) Idle() bool {
	return r.RunningID == 0
}
