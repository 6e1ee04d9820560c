package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful instance starts.",
		}, []string{"name"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of instance stops, graceful or killed.",
		}, []string{"name"},
	)
	processRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "restarts_total",
			Help:      "Number of automatic restarts.",
		}, []string{"name"},
	)
	crashBudgetExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "restart_budget_exhausted_total",
			Help:      "Times a record hit its restart ceiling and was parked.",
		}, []string{"name"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "state_transitions_total",
			Help:      "Lifecycle state transitions per record.",
		}, []string{"name", "from", "to"},
	)
	runningInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "running_instances",
			Help:      "Live instances per record.",
		}, []string{"name"},
	)
	cpuPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "Last sampled CPU percent per instance.",
		}, []string{"name", "instance"},
	)
	memoryBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gpm",
			Subsystem: "process",
			Name:      "memory_bytes",
			Help:      "Last sampled RSS per instance.",
		}, []string{"name", "instance"},
	)
)

// Register registers all collectors with r, defaulting to the global
// registerer. Safe to call more than once.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		processStarts, processStops, processRestarts, crashBudgetExhausted,
		stateTransitions, runningInstances, cpuPercent, memoryBytes,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer; the dispatcher mounts it at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called, so library embedders
// that never wire metrics pay nothing.

func IncStart(name string) {
	if regOK.Load() {
		processStarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		processStops.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		processRestarts.WithLabelValues(name).Inc()
	}
}

func IncBudgetExhausted(name string) {
	if regOK.Load() {
		crashBudgetExhausted.WithLabelValues(name).Inc()
	}
}

func RecordStateTransition(name, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(name, from, to).Inc()
	}
}

func SetRunningInstances(name string, n int) {
	if regOK.Load() {
		runningInstances.WithLabelValues(name).Set(float64(n))
	}
}

func SetUsage(name, instance string, cpu float64, mem uint64) {
	if regOK.Load() {
		cpuPercent.WithLabelValues(name, instance).Set(cpu)
		memoryBytes.WithLabelValues(name, instance).Set(float64(mem))
	}
}
