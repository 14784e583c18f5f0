package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	executionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vortex_executions_in_flight",
			Help: "Number of executions currently holding a worker slot.",
		},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vortex_executions_total",
			Help: "Total executions by outcome.",
		},
		[]string{"outcome"},
	)

	executionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vortex_execution_duration_seconds",
			Help:    "Wall-clock execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	workerPoolCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vortex_worker_pool_capacity",
			Help: "Configured worker pool capacity.",
		},
	)

	workerPoolInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vortex_worker_pool_in_use",
			Help: "Worker slots currently in use.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		executionsInFlight,
		executionsTotal,
		executionDuration,
		workerPoolCapacity,
		workerPoolInUse,
	)
}
