package updater

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
)

// Metrics is the instrumentation contract of the update pipeline.
type Metrics interface {
	RecordRunStart(ctx context.Context)
	RecordRunOutcome(ctx context.Context, status Status, duration time.Duration)
	RecordGameFailure(ctx context.Context, class steamapi.Classification)
	RecordCoalesced(ctx context.Context)
	SetQueueDepth(ctx context.Context, queued, inFlight int)
}

// NoOpMetrics discards all measurements. Used in tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordRunStart(context.Context)                                {}
func (NoOpMetrics) RecordRunOutcome(context.Context, Status, time.Duration)       {}
func (NoOpMetrics) RecordGameFailure(context.Context, steamapi.Classification)    {}
func (NoOpMetrics) RecordCoalesced(context.Context)                               {}
func (NoOpMetrics) SetQueueDepth(context.Context, int, int)                       {}

// PrometheusMetrics implements Metrics on a Prometheus registry.
type PrometheusMetrics struct {
	runsStarted  prometheus.Counter
	runOutcomes  *prometheus.CounterVec
	runDuration  prometheus.Histogram
	gameFailures *prometheus.CounterVec
	coalesced    prometheus.Counter
	queuedDepth  prometheus.Gauge
	inFlight     prometheus.Gauge
}

// NewPrometheusMetrics registers the pipeline collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hunter_update_runs_started_total",
			Help: "Update pipeline runs picked up by a worker.",
		}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hunter_update_runs_total",
			Help: "Completed update pipeline runs by outcome status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hunter_update_run_duration_seconds",
			Help:    "Wall-clock duration of update pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		gameFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hunter_update_game_failures_total",
			Help: "Per-game fetch failures absorbed by the partial-success policy.",
		}, []string{"classification"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hunter_update_requests_coalesced_total",
			Help: "Update requests merged onto a run already queued or in flight.",
		}),
		queuedDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hunter_update_queue_depth",
			Help: "Identities waiting for a worker.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hunter_update_in_flight",
			Help: "Identities currently being updated.",
		}),
	}

	reg.MustRegister(
		m.runsStarted,
		m.runOutcomes,
		m.runDuration,
		m.gameFailures,
		m.coalesced,
		m.queuedDepth,
		m.inFlight,
	)
	return m
}

func (m *PrometheusMetrics) RecordRunStart(context.Context) {
	m.runsStarted.Inc()
}

func (m *PrometheusMetrics) RecordRunOutcome(_ context.Context, status Status, duration time.Duration) {
	m.runOutcomes.WithLabelValues(string(status)).Inc()
	m.runDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGameFailure(_ context.Context, class steamapi.Classification) {
	m.gameFailures.WithLabelValues(string(class)).Inc()
}

func (m *PrometheusMetrics) RecordCoalesced(context.Context) {
	m.coalesced.Inc()
}

func (m *PrometheusMetrics) SetQueueDepth(_ context.Context, queued, inFlight int) {
	m.queuedDepth.Set(float64(queued))
	m.inFlight.Set(float64(inFlight))
}
