package sim

// Defaults taken from the reference DVFS setup: a 50 to 100 frequency range in
// steps of 12.5, 100 instructions per cycle and a 4000 IPS target.
const (
	DefaultMinFreq       = 50.0
	DefaultMaxFreq       = 100.0
	DefaultFreqStep      = 12.5
	DefaultIPC           = 100.0
	DefaultPerfThreshold = 4000.0
	DefaultHorizon       = 300
)

// SimConfig groups the parameters of one simulation run.
// All fields are fixed once the Simulator is constructed.
type SimConfig struct {
	Horizon        int64            // number of ticks to simulate, t in [0, Horizon)
	DispatchPolicy string           // "edf-head" (default) or "edf-eligible"
	Controller     ControllerConfig // DVFS mode, threshold, bounds and step
	TraceLevel     string           // "ticks" (default) or "none"
}

// DefaultControllerConfig returns the reference controller parameters for mode.
func DefaultControllerConfig(mode Mode) ControllerConfig {
	return ControllerConfig{
		Mode:          mode,
		PerfThreshold: DefaultPerfThreshold,
		IPC:           DefaultIPC,
		MinFreq:       DefaultMinFreq,
		MaxFreq:       DefaultMaxFreq,
		FreqStep:      DefaultFreqStep,
	}
}

// DefaultSimConfig returns a run configuration with reference defaults.
func DefaultSimConfig(mode Mode) SimConfig {
	return SimConfig{
		Horizon:        DefaultHorizon,
		DispatchPolicy: "edf-head",
		Controller:     DefaultControllerConfig(mode),
	}
}
