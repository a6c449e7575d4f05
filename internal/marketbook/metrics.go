package marketbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsTracked exposes the number of registered markets.
	MarketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_markets_tracked",
		Help: "Number of markets with registered metadata",
	})

	// TicksProcessedTotal counts applied price ticks.
	TicksProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_ticks_processed_total",
		Help: "Total number of price ticks applied to the marketbook",
	})

	// TicksOrphanedTotal counts ticks for markets without metadata.
	TicksOrphanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_ticks_orphaned_total",
		Help: "Total number of ticks dropped for lack of market metadata",
	})

	// SnapshotsDroppedTotal counts snapshots dropped on a full channel.
	SnapshotsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_snapshots_dropped_total",
		Help: "Total number of assembled snapshots dropped",
	})
)
