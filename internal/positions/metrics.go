package positions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PositionsOpenedTotal counts opened legs.
	PositionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_positions_opened_total",
		Help: "Total number of position legs opened",
	})

	// PositionsClosedTotal counts closed legs.
	PositionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_positions_closed_total",
		Help: "Total number of position legs closed",
	})

	// ActivePositions exposes the size of the active set.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_active_positions",
		Help: "Number of currently active position legs",
	})

	// PairsOpenedTotal counts opened arbitrage pairs.
	PairsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_pairs_opened_total",
		Help: "Total number of arbitrage pairs opened",
	})

	// PairsSettledTotal counts pairs settled by market resolution.
	PairsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_pairs_settled_total",
		Help: "Total number of arbitrage pairs settled",
	})

	// PairsFailedTotal counts pairs whose execution did not complete.
	PairsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_pairs_failed_total",
		Help: "Total number of arbitrage pairs marked failed",
	})

	// FillsRecordedTotal counts leg fills recorded.
	FillsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_fills_recorded_total",
		Help: "Total number of leg fills recorded",
	})

	// SettlementsRecordedTotal counts settlements recorded.
	SettlementsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_settlements_recorded_total",
		Help: "Total number of market settlements recorded",
	})

	// SettlementDiscrepanciesTotal counts settlements whose payout gap
	// exceeded the reconciliation tolerance.
	SettlementDiscrepanciesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_settlement_discrepancies_total",
		Help: "Total number of settlements with a payout discrepancy above tolerance",
	})
)
