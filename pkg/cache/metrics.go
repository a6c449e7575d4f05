package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceHitsTotal tracks price cache hits.
	PriceHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_price_cache_hits_total",
		Help: "Total number of price cache hits",
	})

	// PriceMissesTotal tracks price cache misses.
	PriceMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_price_cache_misses_total",
		Help: "Total number of price cache misses",
	})

	// PriceSetsTotal tracks accepted price writes.
	PriceSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_price_cache_sets_total",
		Help: "Total number of prices stored in the cache",
	})
)
