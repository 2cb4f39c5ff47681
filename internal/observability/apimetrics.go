package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// APICallMetrics exports per-attempt Steam API telemetry to Prometheus. It is
// normally fanned out alongside the database recorder via
// steamapi.MultiRecorder.
type APICallMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var _ steamapi.CallRecorder = (*APICallMetrics)(nil)

func NewAPICallMetrics(reg prometheus.Registerer) *APICallMetrics {
	m := &APICallMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steam_api_calls_total",
			Help: "Steam API call attempts by endpoint and classification.",
		}, []string{"endpoint", "classification"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "steam_api_call_duration_seconds",
			Help:    "Steam API call attempt latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.calls, m.latency)
	return m
}

func (m *APICallMetrics) RecordCall(_ context.Context, rec steamapi.CallRecord) {
	m.calls.WithLabelValues(rec.Endpoint, string(rec.Classification)).Inc()
	m.latency.WithLabelValues(rec.Endpoint).Observe(rec.Latency.Seconds())
}
