package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOps counts record store operations by backend, op and result.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Record store operations.",
	}, []string{"backend", "op", "result"})

	// StoreLatency observes record store operation latency.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "store",
		Name:      "operation_seconds",
		Help:      "Record store operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"backend", "op"})

	// BusPublished counts events published per topic.
	BusPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "bus",
		Name:      "published_total",
		Help:      "Events published on the bus.",
	}, []string{"topic"})

	// BusDelivered counts handler invocations per topic.
	BusDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "bus",
		Name:      "delivered_total",
		Help:      "Handler invocations on the bus.",
	}, []string{"topic"})

	// WalletTransactions counts simulated wallet transactions by type.
	WalletTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "wallet",
		Name:      "transactions_total",
		Help:      "Simulated wallet transactions.",
	}, []string{"type"})

	// RelayForwarded counts bus events forwarded to the relay queue.
	RelayForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "relay",
		Name:      "forwarded_total",
		Help:      "Bus events forwarded to the relay queue.",
	}, []string{"topic", "result"})
)
