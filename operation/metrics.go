package operation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible metrics across every operation
// instrumented with the Instrument modifier, namespaced "opstate_".
type Metrics struct {
	inflightTasks prometheus.Gauge
	taskDuration  *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	dedupHits     *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetrics creates and registers every operation metric with registry. A
// nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		inflightTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "opstate",
			Name:      "inflight_tasks",
			Help:      "Current number of operation tasks executing concurrently",
		}),
		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opstate",
			Name:      "task_duration_seconds",
			Help:      "Operation task run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "status"}), // status: success, failure, cancelled
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opstate",
			Name:      "retries_total",
			Help:      "Cumulative count of Retry modifier re-attempts",
		}, []string{"path"}),
		dedupHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opstate",
			Name:      "dedup_hits_total",
			Help:      "Cumulative count of runs collapsed into an in-flight duplicate by Dedup",
		}, []string{"path"}),
	}
}

// metricsModifier wraps a run with Prometheus instrumentation: it tracks
// the inflight-tasks gauge and records a duration histogram observation
// per attempt.
type metricsModifier[V any] struct {
	m    *Metrics
	path string
}

// Instrument returns a Modifier recording m's metrics for every run of this
// operation, labeled by path.
func Instrument[V any](m *Metrics, path Path) Modifier[V] {
	return &metricsModifier[V]{m: m, path: path.String()}
}

func (mm *metricsModifier[V]) Setup(ctx Context) Context { return ctx }

func (mm *metricsModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		mm.m.inflightTasks.Inc()
		defer mm.m.inflightTasks.Dec()

		start := time.Now()
		result := next(ctx, opCtx, cont)
		elapsed := time.Since(start).Seconds()

		status := "success"
		switch {
		case result.Err == nil:
			status = "success"
		case IsCancelled(result.Err):
			status = "cancelled"
		default:
			status = "failure"
		}
		mm.m.taskDuration.WithLabelValues(mm.path, status).Observe(elapsed)

		if result.Err != nil && !IsCancelled(result.Err) && Get(opCtx, RetryIndexKey) > 0 {
			mm.m.retries.WithLabelValues(mm.path).Inc()
		}

		return result
	}
}

// RecordDedupHit increments the dedup-hits counter for path. Dedup has no
// Metrics reference and never calls it, so the counter changes only when a
// caller calls RecordDedupHit itself.
func (m *Metrics) RecordDedupHit(path Path) {
	m.dedupHits.WithLabelValues(path.String()).Inc()
}
