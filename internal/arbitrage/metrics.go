package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks detected opportunities by strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		},
		[]string{"strategy"},
	)

	// OpportunitiesRejectedTotal tracks rejected candidates by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected during detection",
		},
		[]string{"reason"},
	)

	// NetProfitUSD tracks per-contract-set net profit of detected opportunities.
	NetProfitUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_engine_net_profit_usd",
		Help:    "Net profit per contract set of detected opportunities in USD",
		Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
	})

	// OpportunitySizeUSD tracks the maximum executable size of detected opportunities.
	OpportunitySizeUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_engine_opportunity_size_usd",
		Help:    "Maximum executable trade size of detected opportunities in USD",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})

	// DetectionDurationSeconds tracks one detector pass over a snapshot.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_engine_detection_duration_seconds",
		Help:    "Duration of one detection pass over a market snapshot",
		Buckets: prometheus.DefBuckets,
	})

	// ValidationsAcceptedTotal tracks opportunities that passed revalidation.
	ValidationsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_validations_accepted_total",
		Help: "Total number of opportunities accepted by the validator",
	})

	// ValidationsRejectedTotal tracks revalidation rejections by reason.
	ValidationsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_validations_rejected_total",
			Help: "Total number of opportunities rejected by the validator",
		},
		[]string{"reason"},
	)
)
