package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState exposes the gate state: 0=CLOSED, 1=HALF_OPEN, 2=OPEN.
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	})

	// BreakerTripsTotal counts transitions to OPEN, manual or automatic.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_breaker_trips_total",
		Help: "Total number of circuit breaker trips",
	})

	// TradesRejectedTotal counts validation rejections by reason.
	TradesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_trades_rejected_total",
			Help: "Total number of trades rejected by the circuit breaker",
		},
		[]string{"reason"},
	)

	// TradesExecutedTotal counts successfully recorded trades.
	TradesExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_trades_executed_total",
		Help: "Total number of trades recorded as successful",
	})

	// ExecutionErrorsTotal counts execution errors reported to the breaker.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_execution_errors_total",
		Help: "Total number of execution errors reported to the circuit breaker",
	})

	// DailyPnLUSD exposes the current day's realized P&L.
	DailyPnLUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_daily_pnl_usd",
		Help: "Realized P&L for the current calendar day in USD",
	})

	// OpenPositionsUSD exposes the total booked position size.
	OpenPositionsUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_open_positions_usd",
		Help: "Total booked position size across all markets in USD",
	})
)
