package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	JobsTotal       *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	JobRetries      *prometheus.CounterVec
	OracleCalls     *prometheus.CounterVec
	Verdicts        *prometheus.CounterVec
	Publications    *prometheus.CounterVec
	ThreatsDetected *prometheus.CounterVec
	QueueDepth      *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_jobs_total",
				Help: "Jobs processed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandwatch_job_duration_seconds",
				Help:    "Job execution time",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		JobRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_job_retries_total",
				Help: "Jobs rescheduled after a transient failure",
			},
			[]string{"kind"},
		),
		OracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_oracle_calls_total",
				Help: "Judgment oracle calls by task and outcome (ok, fallback)",
			},
			[]string{"task", "outcome"},
		),
		Verdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_verdicts_total",
				Help: "Verification verdicts by status and decision branch",
			},
			[]string{"status", "branch"},
		),
		Publications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_publications_total",
				Help: "Publish attempts by outcome",
			},
			[]string{"outcome"},
		),
		ThreatsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandwatch_threats_detected_total",
				Help: "Threats created or refreshed by severity",
			},
			[]string{"severity"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "brandwatch_queue_depth",
				Help: "Jobs waiting in the queue by list",
			},
			[]string{"list"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.JobsTotal,
		m.JobDuration,
		m.JobRetries,
		m.OracleCalls,
		m.Verdicts,
		m.Publications,
		m.ThreatsDetected,
		m.QueueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveJob(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(kind, outcome).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) JobRetried(kind string) {
	if m == nil {
		return
	}
	m.JobRetries.WithLabelValues(kind).Inc()
}

func (m *Metrics) OracleCall(task, outcome string) {
	if m == nil {
		return
	}
	m.OracleCalls.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) Verdict(status, branch string) {
	if m == nil {
		return
	}
	m.Verdicts.WithLabelValues(status, branch).Inc()
}

func (m *Metrics) Publication(outcome string) {
	if m == nil {
		return
	}
	m.Publications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ThreatDetected(severity string) {
	if m == nil {
		return
	}
	m.ThreatsDetected.WithLabelValues(severity).Inc()
}

func (m *Metrics) SetQueueDepth(list string, depth int64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(list).Set(float64(depth))
}
