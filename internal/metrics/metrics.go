// Package metrics exposes Prometheus collectors for source collection,
// analysis and workflow steps.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SourceResults  *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	Analyses       *prometheus.CounterVec
	WorkflowSteps  *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SourceResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_source_results_total",
				Help: "Source adapter results by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		SourceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospect_source_duration_seconds",
				Help:    "Source adapter latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
			},
			[]string{"source"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_source_cache_lookups_total",
				Help: "Source cache lookups by result",
			},
			[]string{"result"},
		),
		Analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_analyses_total",
				Help: "Analysis runs by document kind and enhancement status",
			},
			[]string{"kind", "enhancement_status"},
		),
		WorkflowSteps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospect_workflow_steps_total",
				Help: "Workflow step outcomes",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospect_workflow_step_duration_seconds",
				Help:    "Workflow step latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"step"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSource records one adapter outcome.
func (m *Metrics) ObserveSource(source string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceResults.WithLabelValues(source, outcome(success)).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveAnalysis records the enhancement status of an analysis run.
func (m *Metrics) ObserveAnalysis(kind, status string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(kind, status).Inc()
}

// ObserveStep records a workflow step outcome.
func (m *Metrics) ObserveStep(step string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowSteps.WithLabelValues(step, outcome(success)).Inc()
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
