// Package metrics exposes the service's prometheus collectors.
// Registered on the default registry and served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HeartbeatsTotal counts ledger outcomes of processed heartbeats, by action.
	HeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mltm_heartbeats_total",
		Help: "Ledger outcomes of processed heartbeats, by action.",
	}, []string{"action"})

	// WatchdogClosuresTotal counts open intervals closed by the inactivity watchdog.
	WatchdogClosuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mltm_watchdog_closures_total",
		Help: "Open intervals closed by the inactivity watchdog.",
	})

	// IngestQueueDepth tracks jobs currently pending in the ingest queue.
	IngestQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mltm_ingest_queue_depth",
		Help: "Jobs currently pending in the ingest queue.",
	})

	// IngestDroppedTotal counts ingest jobs dropped without a ledger write, by reason.
	IngestDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mltm_ingest_dropped_total",
		Help: "Ingest jobs dropped without a ledger write, by reason.",
	}, []string{"reason"})
)
