package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceTasks is the five-thread workload of the reference DVFS experiment.
func referenceTasks() []*Task {
	return []*Task{
		NewTask(1, PriorityLow, 100, 10, 90),
		NewTask(2, PriorityNormal, 100, 100, 50),
		NewTask(3, PriorityHigh, 200, 150, 40),
		NewTask(4, PriorityNormal, 30, 200, 15),
		NewTask(5, PriorityHigh, 30, 250, 25),
	}
}

func testConfig(mode Mode, horizon int64) SimConfig {
	cfg := DefaultSimConfig(mode)
	cfg.Horizon = horizon
	return cfg
}

// runCheckingInvariants steps a simulator tick by tick and verifies the per-tick invariants.
func runCheckingInvariants(t *testing.T, s *Simulator) []SchedulingEvent {
	t.Helper()
	cc := s.Controller.config
	prevExecuted := make(map[int]int64, len(s.Tasks))
	released := make(map[int]bool, len(s.Tasks))
	installedAt := make(map[int]int64, len(s.Tasks))
	prevFreq := s.Controller.Frequency()
	var events []SchedulingEvent

	for !s.Done() {
		now := s.Clock
		ev, d := s.Step()
		events = append(events, ev)
		if ev.Kind == EventDispatched || ev.Kind == EventPreempted {
			installedAt[ev.RunningID] = now
		}

		running := s.Scheduler.Running()
		if running == nil {
			require.Equal(t, NoTask, ev.RunningID, "tick %d", now)
		} else {
			require.Equal(t, running.ID, ev.RunningID, "tick %d", now)
			require.True(t, running.Activated(now), "task %d running before activation at tick %d", running.ID, now)
			require.Equal(t, StateRunning, running.State)
		}

		runningCount := 0
		for _, task := range s.Tasks {
			require.GreaterOrEqual(t, task.Executed, int64(0))
			require.LessOrEqual(t, task.Executed, task.ExecTime, "task %d over-executed", task.ID)
			delta := task.Executed - prevExecuted[task.ID]
			if running != nil && task == running {
				runningCount++
				require.Equal(t, int64(1), delta, "running task %d must advance exactly one unit at tick %d", task.ID, now)
			} else {
				require.Equal(t, int64(0), delta, "task %d advanced without the slot at tick %d", task.ID, now)
			}
			prevExecuted[task.ID] = task.Executed

			if task.State == StateMissed && !released[task.ID] {
				require.Equal(t, EventDeadlineMissed, ev.Kind)
				require.Equal(t, task.ID, ev.TaskID)
				// first tick at which the task both held the slot and had reached its deadline
				firstDue := max(task.AbsoluteDeadline(), installedAt[task.ID]+1)
				require.Equal(t, firstDue, now, "task %d missed at the wrong tick", task.ID)
			}
			if task.State == StateMissed || task.State == StateFinished {
				released[task.ID] = true
			}
		}
		require.LessOrEqual(t, runningCount, 1)

		require.GreaterOrEqual(t, d.Frequency, cc.MinFreq)
		require.LessOrEqual(t, d.Frequency, cc.MaxFreq)
		step := d.Frequency - prevFreq
		require.Contains(t, []float64{0, cc.FreqStep, -cc.FreqStep}, step, "tick %d: frequency moved by %v", now, step)
		prevFreq = d.Frequency
	}
	return events
}

func TestSimulator_ScenarioA_SingleTaskFinishes(t *testing.T) {
	// GIVEN one task {deadline=100, activation=10, required=90}
	task := NewTask(1, PriorityLow, 100, 10, 90)
	s := NewSimulator(testConfig(ModeEnergySaving, 300), []*Task{task})

	// WHEN the simulation runs for 300 ticks
	events := runCheckingInvariants(t, s)
	s.Metrics.Finalize(s.Tasks)

	// THEN ticks 0..9 are idle, 10..99 run the task, it is released as finished
	// on the tick after its 90th unit, and the processor idles afterwards
	require.Len(t, events, 300)
	for now, ev := range events {
		switch {
		case now < 10:
			assert.Equal(t, EventIdle, ev.Kind, "tick %d", now)
		case now == 10:
			assert.Equal(t, EventDispatched, ev.Kind)
		case now < 100:
			assert.Equal(t, EventRunning, ev.Kind, "tick %d", now)
			assert.Equal(t, 1, ev.RunningID)
		case now == 100:
			assert.Equal(t, EventFinished, ev.Kind)
			assert.Equal(t, 1, ev.TaskID)
		default:
			assert.Equal(t, EventIdle, ev.Kind, "tick %d", now)
		}
	}
	assert.Equal(t, int64(90), task.Executed)
	assert.Equal(t, StateFinished, task.State)
	assert.Equal(t, int64(210), s.IdleTicks)
	assert.Equal(t, 1, s.Metrics.Finished)
	assert.Equal(t, 0, s.Metrics.Missed)
	assert.Equal(t, float64(90), s.Metrics.MeanResponseTime)
}

func TestSimulator_ScenarioB_DeadlineMiss(t *testing.T) {
	// GIVEN activation=5, relative deadline=3, required=10 (absolute deadline 8)
	task := NewTask(1, PriorityNormal, 3, 5, 10)
	s := NewSimulator(testConfig(ModeEnergySaving, 20), []*Task{task})

	// WHEN the simulation runs
	events := runCheckingInvariants(t, s)

	// THEN it is dispatched at 5 and released as missed at 8 with 3 units done
	assert.Equal(t, EventDispatched, events[5].Kind)
	for now := 6; now < 8; now++ {
		assert.Equal(t, EventRunning, events[now].Kind)
	}
	assert.Equal(t, EventDeadlineMissed, events[8].Kind)
	assert.Equal(t, 1, events[8].TaskID)
	assert.Nil(t, s.Scheduler.Running())
	assert.Equal(t, int64(3), task.Executed)
	assert.Equal(t, StateMissed, task.State)
	for now := 9; now < 20; now++ {
		assert.Equal(t, EventIdle, events[now].Kind)
	}
}

func TestSimulator_ScenarioC_EqualDeadlinesFollowInsertionOrder(t *testing.T) {
	build := func() []*Task {
		return []*Task{
			NewTask(8, PriorityLow, 40, 0, 3),
			NewTask(2, PriorityHigh, 38, 2, 3),
		}
	}
	var first []SchedulingEvent
	for run := 0; run < 3; run++ {
		s := NewSimulator(testConfig(ModePerformance, 20), build())
		events := runCheckingInvariants(t, s)
		if run == 0 {
			first = events
		}
		assert.Equal(t, first, events, "run %d diverged", run)

		// Task 8 was inserted first, so it runs first despite the higher priority of task 2.
		assert.Equal(t, 8, events[0].TaskID)
		assert.Equal(t, EventFinished, events[3].Kind)
		assert.Equal(t, 8, events[3].TaskID)
		assert.Equal(t, EventDispatched, events[4].Kind)
		assert.Equal(t, 2, events[4].TaskID)
	}
}

func TestSimulator_ScenarioD_EnergySavingRisesUnderLoad(t *testing.T) {
	// GIVEN a task that keeps the processor busy from tick 0
	s := NewSimulator(testConfig(ModeEnergySaving, 40), []*Task{NewTask(1, PriorityNormal, 1000, 0, 500)})

	// WHEN ticks run
	var freqs []float64
	for !s.Done() {
		_, d := s.Step()
		freqs = append(freqs, d.Frequency)
	}

	// THEN tick 0 (usage 0, slack 1000) lowers/holds at min, and every later tick
	// (usage 1 > 0.8) raises one step until saturating at max
	assert.Equal(t, DefaultMinFreq, freqs[0])
	want := DefaultMinFreq
	for i := 1; i < len(freqs); i++ {
		want = min(want+DefaultFreqStep, DefaultMaxFreq)
		assert.Equal(t, want, freqs[i], "tick %d", i)
	}
	assert.Equal(t, DefaultMaxFreq, freqs[len(freqs)-1])
}

func TestSimulator_ScenarioE_PerformanceBelowThresholdStaysAtMax(t *testing.T) {
	cfg := testConfig(ModePerformance, 30)
	cfg.Controller.PerfThreshold = 1e7
	s := NewSimulator(cfg, referenceTasks())

	runCheckingInvariants(t, s)
	for _, r := range s.Trace.Ticks {
		assert.Equal(t, DefaultMaxFreq, r.Frequency)
		assert.Equal(t, "increase", r.Action)
	}
}

func TestSimulator_ReferenceWorkload_HeadOnlyAbandonsTask3(t *testing.T) {
	// GIVEN the reference workload under the default head-only policy
	s := NewSimulator(testConfig(ModeEnergySaving, 300), referenceTasks())

	// WHEN the simulation runs to the horizon
	events := runCheckingInvariants(t, s)
	s.Metrics.Finalize(s.Tasks)

	// THEN task 3, activated at 150, waits behind un-activated task 4 and is
	// only dispatched at 276, so it is still unfinished at the horizon
	assert.Equal(t, EventFinished, events[100].Kind)
	assert.Equal(t, EventDispatched, events[101].Kind)
	assert.Equal(t, 2, events[101].TaskID)
	assert.Equal(t, EventFinished, events[151].Kind)
	for now := 152; now < 200; now++ {
		require.Equal(t, EventIdle, events[now].Kind, "tick %d", now)
	}
	assert.Equal(t, 4, events[200].TaskID)
	assert.Equal(t, EventFinished, events[215].Kind)
	assert.Equal(t, 5, events[250].TaskID)
	assert.Equal(t, EventFinished, events[275].Kind)
	assert.Equal(t, EventDispatched, events[276].Kind)
	assert.Equal(t, 3, events[276].TaskID)

	assert.Equal(t, 4, s.Metrics.Finished)
	assert.Equal(t, 0, s.Metrics.Missed)
	assert.Equal(t, 1, s.Metrics.Abandoned)
	task3 := s.Metrics.Tasks[2]
	assert.Equal(t, "abandoned", task3.Outcome)
	assert.Equal(t, int64(24), task3.Executed)
	assert.Equal(t, int64(276), task3.FirstDispatch)
}

func TestSimulator_ReferenceWorkload_EligibleScanFinishesAll(t *testing.T) {
	cfg := testConfig(ModeEnergySaving, 300)
	cfg.DispatchPolicy = "edf-eligible"
	s := NewSimulator(cfg, referenceTasks())

	events := runCheckingInvariants(t, s)
	s.Metrics.Finalize(s.Tasks)

	assert.Equal(t, EventDispatched, events[152].Kind)
	assert.Equal(t, 3, events[152].TaskID)
	assert.Equal(t, EventFinished, events[192].Kind)
	assert.Equal(t, 5, s.Metrics.Finished)
	assert.Equal(t, 0, s.Metrics.Abandoned)
}

func TestSimulator_Determinism_IdenticalTraces(t *testing.T) {
	for _, mode := range []Mode{ModeEnergySaving, ModePerformance} {
		a, _ := Simulate(testConfig(mode, 300), referenceTasks())
		b, _ := Simulate(testConfig(mode, 300), referenceTasks())
		assert.Equal(t, a.Ticks, b.Ticks, "mode %s", mode)
	}
}

func TestSimulator_HorizonStopsStepping(t *testing.T) {
	s := NewSimulator(testConfig(ModeEnergySaving, 3), referenceTasks())
	s.Run()
	assert.True(t, s.Done())
	assert.Equal(t, int64(3), s.Clock)
	ev, d := s.Step()
	assert.Equal(t, SchedulingEvent{}, ev)
	assert.Equal(t, ControlDecision{}, d)
	assert.Equal(t, int64(3), s.Clock)
	assert.Len(t, s.Trace.Ticks, 3)
}

func TestNewSimulator_RejectsDuplicateIDsAndBadStep(t *testing.T) {
	tasks := []*Task{NewTask(1, PriorityNormal, 10, 0, 1), NewTask(1, PriorityNormal, 10, 0, 1)}
	assert.Panics(t, func() { NewSimulator(testConfig(ModeEnergySaving, 10), tasks) })

	cfg := testConfig(ModePerformance, 10)
	cfg.Controller.FreqStep = -DefaultFreqStep
	assert.Panics(t, func() { NewSimulator(cfg, referenceTasks()) })
}

func TestSimulator_TraceLevelNone_StillCountsMetrics(t *testing.T) {
	cfg := testConfig(ModeEnergySaving, 50)
	cfg.TraceLevel = "none"
	tr, m := Simulate(cfg, []*Task{NewTask(1, PriorityNormal, 3, 5, 10)})
	assert.Empty(t, tr.Ticks)
	assert.Equal(t, int64(50), m.Ticks)
	assert.Equal(t, 1, m.Missed)
	assert.Empty(t, m.EventCounts)
}

func TestSimulate_EventCountsFromTrace(t *testing.T) {
	// GIVEN the single-task run: idle 0..9, dispatch at 10, run 11..99, finish at 100
	_, m := Simulate(testConfig(ModeEnergySaving, 300), []*Task{NewTask(1, PriorityLow, 100, 10, 90)})

	// THEN the per-kind tick counts cover the whole horizon
	assert.Equal(t, map[string]int{
		string(EventIdle):       10 + 199,
		string(EventDispatched): 1,
		string(EventRunning):    89,
		string(EventFinished):   1,
	}, m.EventCounts)
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	held    bool
}

func (c *countingLocker) Lock() {
	c.mu.Lock()
	c.locks++
	c.held = true
}

func (c *countingLocker) Unlock() {
	c.held = false
	c.unlocks++
	c.mu.Unlock()
}

type lockAssertingObserver struct {
	t      *testing.T
	locker *countingLocker
	ticks  int
}

func (o *lockAssertingObserver) ObserveTick(_ SchedulingEvent, _ ControlDecision) {
	o.ticks++
	if !o.locker.held {
		o.t.Errorf("observer called outside the tick lock")
	}
}

func TestSimulator_Locker_WrapsEveryTick(t *testing.T) {
	locker := &countingLocker{}
	s := NewSimulator(testConfig(ModeEnergySaving, 25), referenceTasks())
	s.Locker = locker
	obs := &lockAssertingObserver{t: t, locker: locker}
	s.Observers = append(s.Observers, obs)

	s.Run()

	assert.Equal(t, 25, obs.ticks)
	assert.Equal(t, locker.locks, locker.unlocks)
	assert.GreaterOrEqual(t, locker.locks, 25)
	assert.False(t, locker.held)
}
