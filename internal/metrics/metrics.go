package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	reconcilePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "converge",
			Subsystem: "controller",
			Name:      "reconcile_passes_total",
			Help:      "Number of reconcile passes by projected outcome.",
		}, []string{"outcome"},
	)
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "converge",
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Observed duration of full reconcile passes.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	workloadRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "converge",
			Subsystem: "workload",
			Name:      "restarts_total",
			Help:      "Number of forced service restarts after config changes.",
		}, []string{"workload"},
	)
	filesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "converge",
			Subsystem: "workload",
			Name:      "files_written_total",
			Help:      "Number of managed files pushed because their bytes changed.",
		}, []string{"workload"},
	)
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "converge",
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Number of one-shot job executions by result.",
		}, []string{"label", "result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{reconcilePasses, reconcileDuration, workloadRestarts, filesWritten, jobRuns}
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

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Lightweight helpers used by internal packages. They no-op if
// Register hasn't been called.

func IncReconcile(outcome string) {
	if regOK.Load() {
		reconcilePasses.WithLabelValues(outcome).Inc()
	}
}

func ObserveReconcile(seconds float64) {
	if regOK.Load() {
		reconcileDuration.Observe(seconds)
	}
}

func IncRestart(workload string) {
	if regOK.Load() {
		workloadRestarts.WithLabelValues(workload).Inc()
	}
}

func IncFileWritten(workload string) {
	if regOK.Load() {
		filesWritten.WithLabelValues(workload).Inc()
	}
}

func IncJobRun(label, result string) {
	if regOK.Load() {
		jobRuns.WithLabelValues(label, result).Inc()
	}
}
