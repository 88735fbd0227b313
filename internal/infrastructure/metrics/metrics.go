// Package metrics exposes the service's prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ippgi_prices"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	recordsWritten   *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.upstreamRequests = m.counter("upstream_requests_total", "Upstream pricing API calls by operation and outcome.", "op", "outcome")
	m.upstreamDuration = m.histogram("upstream_request_duration_seconds", "Upstream pricing API latency.", prometheus.DefBuckets, "op")
	m.cacheLookups = m.counter("cache_lookups_total", "Price cache lookups by namespace and result.", "cache", "result")
	m.recordsWritten = m.counter("history_records_total", "History rows processed by material and outcome.", "material", "outcome")
	m.jobRuns = m.counter("job_runs_total", "Scheduled job executions by job and outcome.", "job", "outcome")
	m.jobDuration = m.histogram("job_duration_seconds", "Scheduled job wall time.", []float64{1, 5, 15, 30, 60, 120, 300, 900}, "job")
	return m
}

func (m *Metrics) counter(name, help string, labels ...string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metrics) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	m.registry.MustRegister(hv)
	return hv
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func (m *Metrics) ObserveUpstream(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(op, outcome(err)).Inc()
	m.upstreamDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) RecordWritten(material, outcome string) {
	if m == nil {
		return
	}
	m.recordsWritten.WithLabelValues(material, outcome).Inc()
}

func (m *Metrics) ObserveJob(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
