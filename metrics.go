package rpools

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a pool reports into.
// A nil *Metrics disables instrumentation.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsRecovered prometheus.Counter
	BusyWorkers   prometheus.Gauge
	JobDuration   prometheus.Histogram
}

// NewMetrics creates pool metrics and registers them on the default
// registry.
func NewMetrics(namespace, subsystem string) *Metrics {
	return NewMetricsOn(prometheus.DefaultRegisterer, namespace, subsystem)
}

// NewMetricsOn creates pool metrics and registers them on reg.
func NewMetricsOn(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the pool",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs completed without panicking",
		}),
		JobsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_recovered_total",
			Help:      "Total number of job panics recovered by workers",
		}),
		BusyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "busy_workers",
			Help:      "Number of workers currently executing a job",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.JobsSubmitted,
		m.JobsCompleted,
		m.JobsRecovered,
		m.BusyWorkers,
		m.JobDuration,
	)
	return m
}

func (m *Metrics) submitted() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
}

func (m *Metrics) completed(d time.Duration) {
	if m == nil {
		return
	}
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(d.Seconds())
}

func (m *Metrics) recoveredPanic() {
	if m == nil {
		return
	}
	m.JobsRecovered.Inc()
}

func (m *Metrics) busy(delta float64) {
	if m == nil {
		return
	}
	m.BusyWorkers.Add(delta)
}
