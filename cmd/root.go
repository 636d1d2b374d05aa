package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sim "github.com/rtsim/edfsim/sim"
	"github.com/rtsim/edfsim/sim/telemetry"
	"github.com/rtsim/edfsim/sim/trace"
)

var (
	// CLI flags for the run
	configPath     string  // YAML scenario file; empty uses the built-in scenario
	mode           string  // DVFS mode (energy-saving, performance)
	perfThreshold  float64 // Target IPS in performance mode
	ipc            float64 // Instructions per cycle
	horizon        int64   // Total simulation time (in ticks)
	dispatchPolicy string  // EDF dispatch policy (edf-head, edf-eligible)
	minFreq        float64 // Minimum CPU frequency
	maxFreq        float64 // Maximum CPU frequency
	freqStep       float64 // Frequency change per controller step
	logLevel       string  // Log verbosity level
	traceLevel     string  // Tick trace level (ticks, none)
	resultsPath    string  // File to save results JSON
	metricsAddr    string  // Address for the Prometheus /metrics endpoint
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "edfsim",
	Short: "Discrete-time EDF scheduler simulator with DVFS frequency control",
}

// runCmd executes the simulation using the scenario file and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the EDF/DVFS simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q; valid: ticks, none", traceLevel)
		}

		bundle, err := buildScenario(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cfg := bundle.ToSimConfig()
		cfg.TraceLevel = traceLevel
		tasks := bundle.BuildTasks()

		logrus.Infof("Starting simulation with %d tasks, horizon=%dticks, mode=%s, dispatch=%s, freq=[%v, %v] step %v",
			len(tasks), cfg.Horizon, cfg.Controller.Mode, cfg.DispatchPolicy,
			cfg.Controller.MinFreq, cfg.Controller.MaxFreq, cfg.Controller.FreqStep)

		startTime := time.Now()
		s := sim.NewSimulator(cfg, tasks)

		var rec *telemetry.Recorder
		if metricsAddr != "" {
			rec = telemetry.NewRecorder(cfg.Controller.Mode)
			s.Observers = append(s.Observers, rec)
		}

		s.Run()

		if err := trace.WriteText(cmd.OutOrStdout(), s.Trace); err != nil {
			logrus.Fatalf("Writing trace: %v", err)
		}
		s.Metrics.Print()
		logrus.Infof("Simulation took %v", time.Since(startTime))

		if resultsPath != "" {
			if err := s.Metrics.SaveResults(resultsPath); err != nil {
				logrus.Fatalf("Saving results: %v", err)
			}
		}

		if rec != nil {
			serveMetrics(rec, metricsAddr)
		}
		logrus.Info("Simulation complete.")
	},
}

// defaultConfigCmd prints the built-in scenario, a starting point for --config files
var defaultConfigCmd = &cobra.Command{
	Use:   "default-config",
	Short: "Print the built-in scenario YAML",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = cmd.OutOrStdout().Write(defaultScenarioYAML)
	},
}

// buildScenario loads the scenario and applies the flags the user set explicitly.
// Flags left at their defaults never override values from the file.
func buildScenario(flags *pflag.FlagSet) (*sim.ScenarioBundle, error) {
	bundle, err := loadScenario(configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("mode") {
		bundle.Mode = mode
	}
	if flags.Changed("perf-threshold") {
		bundle.PerfThreshold = &perfThreshold
	}
	if flags.Changed("ipc") {
		bundle.IPC = &ipc
	}
	if flags.Changed("horizon") {
		bundle.Horizon = &horizon
	}
	if flags.Changed("dispatch-policy") {
		bundle.DispatchPolicy = dispatchPolicy
	}
	if flags.Changed("min-freq") {
		bundle.Frequency.Min = &minFreq
	}
	if flags.Changed("max-freq") {
		bundle.Frequency.Max = &maxFreq
	}
	if flags.Changed("freq-step") {
		bundle.Frequency.Step = &freqStep
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return bundle, nil
}

// serveMetrics keeps the /metrics endpoint up until the process is interrupted.
func serveMetrics(rec *telemetry.Recorder, addr string) {
	srv := rec.Serve(addr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logrus.Infof("Serving metrics on %s/metrics; interrupt to exit", addr)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("Metrics server shutdown: %v", err)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file (default: built-in reference scenario)")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "ticks", "Tick trace level (ticks, none)")
	runCmd.Flags().StringVar(&resultsPath, "results-path", "", "Save results JSON to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address after the run (e.g. :2112)")

	// Controller configs
	runCmd.Flags().StringVar(&mode, "mode", string(sim.ModeEnergySaving), "DVFS mode (energy-saving, performance)")
	runCmd.Flags().Float64Var(&perfThreshold, "perf-threshold", sim.DefaultPerfThreshold, "Target instructions per second in performance mode")
	runCmd.Flags().Float64Var(&ipc, "ipc", sim.DefaultIPC, "Instructions per cycle")
	runCmd.Flags().Float64Var(&minFreq, "min-freq", sim.DefaultMinFreq, "Minimum CPU frequency")
	runCmd.Flags().Float64Var(&maxFreq, "max-freq", sim.DefaultMaxFreq, "Maximum CPU frequency")
	runCmd.Flags().Float64Var(&freqStep, "freq-step", sim.DefaultFreqStep, "Frequency change per controller step")

	// Scheduler configs
	runCmd.Flags().Int64Var(&horizon, "horizon", sim.DefaultHorizon, "Total simulation horizon (in ticks)")
	runCmd.Flags().StringVar(&dispatchPolicy, "dispatch-policy", "edf-head", "EDF dispatch policy (edf-head, edf-eligible)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultConfigCmd)
}
