package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// energySavingMode is the mode name under which usage lines are printed.
const energySavingMode = "energy-saving"

// WriteText renders the trace in the console format, one line group per tick:
//
//	Thread 3 finished its execution
//	Thread idle running; current time = 57
//	CPU Usage = 0.912281
//	Current CPU Frequency: 100
//
// A deadline miss prints "Thread <id> lost its deadline" followed by a blank line.
func WriteText(w io.Writer, st *SimulationTrace) error {
	if st == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	for _, r := range st.Ticks {
		switch r.Event { // values of sim.EventKind
		case "finished":
			fmt.Fprintf(bw, "Thread %d finished its execution\n", r.TaskID)
		case "deadline-missed":
			fmt.Fprintf(bw, "Thread %d lost its deadline\n\n", r.TaskID)
		}
		if r.Idle() {
			fmt.Fprintf(bw, "Thread idle running; current time = %d\n", r.Clock)
		} else {
			fmt.Fprintf(bw, "Thread %d running; current time = %d\n", r.RunningID, r.Clock)
		}
		if st.Config.Mode == energySavingMode {
			fmt.Fprintf(bw, "CPU Usage = %s\n", formatNumber(r.Usage))
		}
		fmt.Fprintf(bw, "Current CPU Frequency: %s\n\n", formatNumber(r.Frequency))
	}
	return bw.Flush()
}

// formatNumber prints up to six significant digits without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
