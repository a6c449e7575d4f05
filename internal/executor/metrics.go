package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_executions_total",
		Help: "Total number of opportunities executed on paper",
	})

	ExecutionsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_executions_failed_total",
		Help: "Total number of executions that failed to open their legs",
	})

	SettlementsHandledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_settlements_handled_total",
		Help: "Total number of market settlements processed",
	})

	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_engine_execution_duration_seconds",
		Help:    "Time to process a single opportunity",
		Buckets: prometheus.DefBuckets,
	})
)
