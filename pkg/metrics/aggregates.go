package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AggregateMetrics records the health of denormalized catalog aggregates.
type AggregateMetrics struct {
	failures       *prometheus.CounterVec
	repairs        *prometheus.CounterVec
	repairDuration *prometheus.HistogramVec
}

// NewAggregateMetrics registers the aggregate metrics on the provided registerer.
func NewAggregateMetrics(reg prometheus.Registerer) *AggregateMetrics {
	if reg == nil {
		return &AggregateMetrics{}
	}
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregate_update_failures",
		Help: "Aggregate updates that could not be applied after the primary write.",
	}, []string{"aggregate"})
	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregate_repairs",
		Help: "Aggregate rows recomputed from source records.",
	}, []string{"aggregate"})
	repairDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregate_repair_duration_seconds",
		Help:    "Duration of aggregate recompute passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"aggregate"})
	reg.MustRegister(failures, repairs, repairDuration)
	return &AggregateMetrics{
		failures:       failures,
		repairs:        repairs,
		repairDuration: repairDuration,
	}
}

// IncFailure increments the failure counter for the named aggregate.
func (a *AggregateMetrics) IncFailure(aggregate string) {
	if a == nil || a.failures == nil {
		return
	}
	a.failures.WithLabelValues(normalizeLabel(aggregate)).Inc()
}

// IncRepair increments the repair counter for the named aggregate.
func (a *AggregateMetrics) IncRepair(aggregate string) {
	if a == nil || a.repairs == nil {
		return
	}
	a.repairs.WithLabelValues(normalizeLabel(aggregate)).Inc()
}

// ObserveRepairDuration records how long a recompute pass took.
func (a *AggregateMetrics) ObserveRepairDuration(aggregate string, duration time.Duration) {
	if a == nil || a.repairDuration == nil {
		return
	}
	a.repairDuration.WithLabelValues(normalizeLabel(aggregate)).Observe(duration.Seconds())
}

func normalizeLabel(aggregate string) string {
	if aggregate == "" {
		return "unknown"
	}
	return aggregate
}
