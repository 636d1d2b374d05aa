package trace

// TraceSummary aggregates a SimulationTrace by scheduling event kind.
type TraceSummary struct {
	TotalTicks  int
	EventCounts map[string]int // event kind → number of ticks
}

// Summarize counts recorded ticks per event kind.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventCounts: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTicks = len(st.Ticks)
	for _, r := range st.Ticks {
		summary.EventCounts[r.Event]++
	}
	return summary
}
