package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedConnected is 1 while the feed connection is up.
	FeedConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_engine_feed_connected",
		Help: "Whether the dashboard feed connection is established (0 or 1)",
	})

	// MessagesReceivedTotal counts decoded feed messages by type.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_feed_messages_received_total",
			Help: "Total number of feed messages received",
		},
		[]string{"type"},
	)

	// MessagesDroppedTotal counts dropped feed messages by reason.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_engine_feed_messages_dropped_total",
			Help: "Total number of feed messages dropped",
		},
		[]string{"reason"},
	)

	// ReconnectAttemptsTotal counts reconnect attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_feed_reconnect_attempts_total",
		Help: "Total number of feed reconnect attempts",
	})

	// ReconnectFailuresTotal counts failed reconnect attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_engine_feed_reconnect_failures_total",
		Help: "Total number of failed feed reconnect attempts",
	})
)
