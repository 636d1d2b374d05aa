// Package telemetry exports simulation progress as Prometheus metrics.
// Each Recorder owns a private registry, so independent simulations never share series.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rtsim/edfsim/sim"
)

// Recorder implements sim.TickObserver.
type Recorder struct {
	registry *prometheus.Registry

	ticks     prometheus.Counter
	idleTicks prometheus.Counter
	events    *prometheus.CounterVec
	actions   *prometheus.CounterVec
	frequency prometheus.Gauge
	usage     prometheus.Gauge
	slack     prometheus.Gauge
	clock     prometheus.Gauge
}

// NewRecorder creates a Recorder whose series carry the given DVFS mode as a constant label.
func NewRecorder(mode sim.Mode) *Recorder {
	labels := prometheus.Labels{"mode": string(mode)}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "edfsim_ticks_total",
			Help:        "Number of simulated ticks.",
			ConstLabels: labels,
		}),
		idleTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "edfsim_idle_ticks_total",
			Help:        "Number of ticks during which no task ran.",
			ConstLabels: labels,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "edfsim_scheduling_events_total",
			Help:        "Scheduling events by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "edfsim_dvfs_actions_total",
			Help:        "DVFS controller actions by kind.",
			ConstLabels: labels,
		}, []string{"action"}),
		frequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "edfsim_cpu_frequency",
			Help:        "Simulated CPU frequency after the latest controller step.",
			ConstLabels: labels,
		}),
		usage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "edfsim_cpu_usage_ratio",
			Help:        "Fraction of elapsed ticks during which a task was running.",
			ConstLabels: labels,
		}),
		slack: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "edfsim_slack_ticks",
			Help:        "Ticks until the nearest relevant absolute deadline; not updated while no task exists.",
			ConstLabels: labels,
		}),
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "edfsim_clock_ticks",
			Help:        "Current simulation tick.",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.ticks, r.idleTicks, r.events, r.actions, r.frequency, r.usage, r.slack, r.clock)
	return r
}

// ObserveTick records one tick's scheduling event and controller decision.
func (r *Recorder) ObserveTick(ev sim.SchedulingEvent, d sim.ControlDecision) {
	r.ticks.Inc()
	if ev.Idle() {
		r.idleTicks.Inc()
	}
	r.events.WithLabelValues(string(ev.Kind)).Inc()
	r.actions.WithLabelValues(string(d.Action)).Inc()
	r.frequency.Set(d.Frequency)
	r.usage.Set(d.Usage)
	if d.Slack != sim.SlackInfinite {
		r.slack.Set(float64(d.Slack))
	}
	r.clock.Set(float64(ev.Time))
}

// Registry exposes the underlying registry, mainly for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler serving the recorder's metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr in the background.
// The returned server can be shut down by the caller.
func (r *Recorder) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logrus.Infof("[telemetry] Starting metrics server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Errorf("[telemetry] metrics server: %v", err)
		}
	}()
	return srv
}
