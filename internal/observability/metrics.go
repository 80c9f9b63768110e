package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics collects application metrics.
type Metrics interface {
	RecordRequest(ctx context.Context, labels RequestLabels)
	RecordUpstreamAttempt(ctx context.Context, provider, outcome string, latency time.Duration)
	RecordRetryWait(ctx context.Context, provider string, wait time.Duration)
	RecordFragment(ctx context.Context, provider string)
	StreamStarted(ctx context.Context)
	StreamFinished(ctx context.Context)
}

// RequestLabels contains metric dimensions.
type RequestLabels struct {
	Mode     string // "buffered" or "stream"
	Provider string
	Status   string
}

// PrometheusMetrics implements Metrics with Prometheus collectors.
type PrometheusMetrics struct {
	requestsTotal    *prometheus.CounterVec
	upstreamAttempts *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	retryWait        *prometheus.HistogramVec
	fragmentsTotal   *prometheus.CounterVec
	streamingActive  prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_relay_requests_total",
				Help: "Chat requests by mode and outcome",
			},
			[]string{"mode", "provider", "status"},
		),
		upstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_relay_upstream_attempts_total",
				Help: "Upstream provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_relay_upstream_latency_seconds",
				Help:    "Upstream provider latency",
				Buckets: LLMBuckets,
			},
			[]string{"provider"},
		),
		retryWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_relay_retry_wait_seconds",
				Help:    "Backoff waits before retrying a rate-limited call",
				Buckets: []float64{0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),
		fragmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_relay_stream_fragments_total",
				Help: "Streamed fragments forwarded to callers",
			},
			[]string{"provider"},
		),
		streamingActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_relay_streaming_active",
				Help: "Active streaming responses",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.requestsTotal,
		m.upstreamAttempts,
		m.upstreamLatency,
		m.retryWait,
		m.fragmentsTotal,
		m.streamingActive,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) RecordRequest(_ context.Context, labels RequestLabels) {
	m.requestsTotal.WithLabelValues(labels.Mode, labels.Provider, labels.Status).Inc()
}

func (m *PrometheusMetrics) RecordUpstreamAttempt(_ context.Context, provider, outcome string, latency time.Duration) {
	m.upstreamAttempts.WithLabelValues(provider, outcome).Inc()
	m.upstreamLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) RecordRetryWait(_ context.Context, provider string, wait time.Duration) {
	m.retryWait.WithLabelValues(provider).Observe(wait.Seconds())
}

func (m *PrometheusMetrics) RecordFragment(_ context.Context, provider string) {
	m.fragmentsTotal.WithLabelValues(provider).Inc()
}

func (m *PrometheusMetrics) StreamStarted(context.Context) {
	m.streamingActive.Inc()
}

func (m *PrometheusMetrics) StreamFinished(context.Context) {
	m.streamingActive.Dec()
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordRequest(context.Context, RequestLabels)                         {}
func (NopMetrics) RecordUpstreamAttempt(context.Context, string, string, time.Duration) {}
func (NopMetrics) RecordRetryWait(context.Context, string, time.Duration)               {}
func (NopMetrics) RecordFragment(context.Context, string)                               {}
func (NopMetrics) StreamStarted(context.Context)                                        {}
func (NopMetrics) StreamFinished(context.Context)                                       {}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NopMetrics{}
)
