// Tracks simulation-wide and per-task outcomes such as:
// completions, deadline misses, preemptions, idle time and frequency levels.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// TaskMetrics records the outcome of one task.
type TaskMetrics struct {
	ID               int    `json:"id"`
	Priority         string `json:"priority"`
	Outcome          string `json:"outcome"` // finished, missed, abandoned
	ActivationTime   int64  `json:"activation_time"`
	AbsoluteDeadline int64  `json:"absolute_deadline"`
	ExecTime         int64  `json:"exec_time"`
	Executed         int64  `json:"executed"`
	FirstDispatch    int64  `json:"first_dispatch"` // -1 if never dispatched
	ReleasedAt       int64  `json:"released_at"`    // -1 if never released
	Preemptions      int    `json:"preemptions"`
}

// Metrics aggregates statistics about the simulation for final reporting.
type Metrics struct {
	Ticks       int64 `json:"ticks"`
	IdleTicks   int64 `json:"idle_ticks"`
	Finished    int   `json:"finished"`
	Missed      int   `json:"deadline_missed"`
	Abandoned   int   `json:"abandoned"`
	Preemptions int   `json:"preemptions"`
	Dispatches  int   `json:"dispatches"`

	FinalUsage       float64 `json:"final_usage"`
	MinFrequency     float64 `json:"min_frequency"`
	MaxFrequency     float64 `json:"max_frequency"`
	MeanFrequency    float64 `json:"mean_frequency"`
	FrequencyChanges int     `json:"frequency_changes"`

	MeanResponseTime float64 `json:"mean_response_time"` // finish tick minus activation, finished tasks only
	P90ResponseTime  float64 `json:"p90_response_time"`

	// EventCounts is the number of ticks per scheduling event kind, taken from
	// the tick trace. Empty when tracing is off.
	EventCounts map[string]int `json:"event_counts,omitempty"`

	Tasks []TaskMetrics `json:"tasks"`

	freqSum   float64
	lastFreq  float64
	perTask   map[int]*TaskMetrics
	responses []int64
}

// NewMetrics creates a Metrics tracking the given tasks.
func NewMetrics(tasks []*Task) *Metrics {
	m := &Metrics{perTask: make(map[int]*TaskMetrics, len(tasks))}
	for _, t := range tasks {
		m.perTask[t.ID] = &TaskMetrics{
			ID:               t.ID,
			Priority:         string(t.Priority),
			ActivationTime:   t.ActivationTime,
			AbsoluteDeadline: t.AbsoluteDeadline(),
			ExecTime:         t.ExecTime,
			FirstDispatch:    -1,
			ReleasedAt:       -1,
		}
	}
	return m
}

// RecordTick folds one tick's scheduling event and controller decision into the totals.
func (m *Metrics) RecordTick(ev SchedulingEvent, d ControlDecision) {
	if m.Ticks == 0 {
		m.MinFrequency, m.MaxFrequency = d.Frequency, d.Frequency
	} else if d.Frequency != m.lastFreq {
		m.FrequencyChanges++
	}
	m.Ticks++
	m.freqSum += d.Frequency
	m.lastFreq = d.Frequency
	m.MinFrequency = min(m.MinFrequency, d.Frequency)
	m.MaxFrequency = max(m.MaxFrequency, d.Frequency)
	m.FinalUsage = d.Usage
	if ev.Idle() {
		m.IdleTicks++
	}

	switch ev.Kind {
	case EventFinished:
		m.Finished++
		if tm := m.perTask[ev.TaskID]; tm != nil {
			tm.ReleasedAt = ev.Time
			m.responses = append(m.responses, ev.Time-tm.ActivationTime)
		}
	case EventDeadlineMissed:
		m.Missed++
		if tm := m.perTask[ev.TaskID]; tm != nil {
			tm.ReleasedAt = ev.Time
		}
	case EventPreempted:
		m.Preemptions++
		if tm := m.perTask[ev.TaskID]; tm != nil {
			tm.Preemptions++
		}
		m.markDispatched(ev.RunningID, ev.Time)
	case EventDispatched:
		m.Dispatches++
		m.markDispatched(ev.TaskID, ev.Time)
	}
}

func (m *Metrics) markDispatched(id int, now int64) {
	if tm := m.perTask[id]; tm != nil && tm.FirstDispatch < 0 {
		tm.FirstDispatch = now
	}
}

// Finalize captures per-task outcomes once the horizon is reached.
// Tasks neither finished nor missed are counted as abandoned.
func (m *Metrics) Finalize(tasks []*Task) {
	m.Tasks = m.Tasks[:0]
	m.Abandoned = 0
	for _, t := range tasks {
		tm := m.perTask[t.ID]
		if tm == nil {
			continue
		}
		tm.Executed = t.Executed
		switch t.State {
		case StateFinished:
			tm.Outcome = "finished"
		case StateMissed:
			tm.Outcome = "missed"
		default:
			tm.Outcome = "abandoned"
			m.Abandoned++
		}
		m.Tasks = append(m.Tasks, *tm)
	}
	sort.Slice(m.Tasks, func(i, j int) bool { return m.Tasks[i].ID < m.Tasks[j].ID })
	if m.Ticks > 0 {
		m.MeanFrequency = m.freqSum / float64(m.Ticks)
	}
	m.MeanResponseTime = CalculateMean(m.responses)
	m.P90ResponseTime = CalculatePercentile(m.responses, 90)
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Ticks                : %d (%d idle)\n", m.Ticks, m.IdleTicks)
	fmt.Printf("Finished Tasks       : %d\n", m.Finished)
	fmt.Printf("Deadline Misses      : %d\n", m.Missed)
	fmt.Printf("Abandoned Tasks      : %d\n", m.Abandoned)
	fmt.Printf("Preemptions          : %d\n", m.Preemptions)
	fmt.Printf("Final CPU Usage      : %.4f\n", m.FinalUsage)
	fmt.Printf("Frequency min/mean/max : %.2f / %.2f / %.2f (%d changes)\n",
		m.MinFrequency, m.MeanFrequency, m.MaxFrequency, m.FrequencyChanges)
	if m.Finished > 0 {
		fmt.Printf("Response Time mean/p90 : %.2f / %.2f ticks\n", m.MeanResponseTime, m.P90ResponseTime)
	}
	if len(m.EventCounts) > 0 {
		kinds := make([]string, 0, len(m.EventCounts))
		for k := range m.EventCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Println("Ticks by event:")
		for _, k := range kinds {
			fmt.Printf("  %-16s: %d\n", k, m.EventCounts[k])
		}
	}
}

// SaveResults writes the metrics as indented JSON to path.
func (m *Metrics) SaveResults(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	logrus.Infof("Results written to %s", path)
	return nil
}
