// Package middleware provides cross-cutting concerns for the benchmark
// pipeline, currently Prometheus-backed metrics collection.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anna-assistant/annabench/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks oracle request traffic, token usage, verdict
// distribution, and batch progress for a benchmark run.
type PrometheusMetrics struct {
	oracleRequests  *prometheus.CounterVec
	oracleTokens    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	recordsByClass  *prometheus.CounterVec
	operationCounts *prometheus.CounterVec
	batchGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all metric families in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		oracleRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_requests_total",
				Help: "Total oracle requests by provider, model, and outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		oracleTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_tokens_total",
				Help: "Tokens consumed by oracle requests.",
			},
			[]string{"provider", "model", "token_type"},
		),
		requestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracle_request_seconds",
				Help:    "Oracle request wall-clock duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		recordsByClass: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluation_records_total",
				Help: "Evaluation records produced, by verdict class.",
			},
			[]string{"verdict"},
		),
		operationCounts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchmark_operations_total",
				Help: "Pipeline operations performed, by name and status.",
			},
			[]string{"operation", "status"},
		),
		batchGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "benchmark_batch_state",
				Help: "Current batch progress values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records operation latency in the request histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string, duration time.Duration, labels map[string]string,
) {
	pm.requestLatency.WithLabelValues(
		labelOr(labels, "provider", operation),
		labelOr(labels, "model", "unknown"),
	).Observe(duration.Seconds())
}

// RecordCounter increments the counter family matching the metric name.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "oracle_requests_total":
		pm.oracleRequests.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case "oracle_tokens_total":
		pm.oracleTokens.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	case "evaluation_records_total":
		pm.recordsByClass.WithLabelValues(
			labelOr(labels, "verdict", "unknown"),
		).Add(value)
	default:
		pm.operationCounts.WithLabelValues(
			metric,
			labelOr(labels, "status", "success"),
		).Add(value)
	}
}

// RecordGauge sets a batch-progress gauge value.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.batchGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a pre-computed value, in seconds for latency
// metrics, into the request histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	pm.requestLatency.WithLabelValues(
		labelOr(labels, "provider", metric),
		labelOr(labels, "model", "unknown"),
	).Observe(value)
}

func labelOr(labels map[string]string, key, def string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return def
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
