package trace

// TraceLevel controls the verbosity of tick tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTicks captures every tick's scheduling event and controller decision.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelTicks: true,
	"":              true, // empty defaults to ticks
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	Mode  string // DVFS mode of the run; the text renderer prints usage only in energy-saving mode
}

// Enabled reports whether ticks should be recorded.
func (c TraceConfig) Enabled() bool {
	return c.Level != TraceLevelNone
}

// SimulationTrace collects tick records during a simulation.
type SimulationTrace struct {
	Config TraceConfig
	Ticks  []TickRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Ticks:  make([]TickRecord, 0),
	}
}

// RecordTick appends a tick record. No-op when tracing is disabled.
func (st *SimulationTrace) RecordTick(record TickRecord) {
	if !st.Config.Enabled() {
		return
	}
	st.Ticks = append(st.Ticks, record)
}
