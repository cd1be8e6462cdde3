// Package metrics exposes prometheus collectors for scenario runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "optpricer"

// Metrics groups the collectors recorded by the scenario runner. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	GridPoints  prometheus.Counter
	Evaluations prometheus.Counter
	Failures    *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scenario runs by outcome.",
		}, []string{"status"}),
		GridPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_points_total",
			Help:      "Grid points evaluated.",
		}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Instrument evaluations performed.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed runs by error kind.",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Scenario run wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	reg.MustRegister(m.Runs, m.GridPoints, m.Evaluations, m.Failures, m.RunDuration)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the collectors registered with the default registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// ObserveSuccess records a completed run.
func (m *Metrics) ObserveSuccess(points, instruments int, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues("ok").Inc()
	m.GridPoints.Add(float64(points))
	m.Evaluations.Add(float64(points * instruments))
	m.RunDuration.Observe(d.Seconds())
}

// ObserveFailure records a failed run under its error kind.
func (m *Metrics) ObserveFailure(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues("failed").Inc()
	m.Failures.WithLabelValues(kind).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// WriteTextfile writes every metric in g to path in the text exposition
// format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
