package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// passesTotal counts reconciliation passes by trigger.
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhider_passes_total",
		Help: "Total reconciliation passes by trigger",
	}, []string{"trigger"})

	// hiddenTotal counts items hidden by category.
	hiddenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedhider_items_hidden_total",
		Help: "Total items hidden by category",
	}, []string{"category"})

	// restoredTotal counts items made visible again.
	restoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedhider_items_restored_total",
		Help: "Total items restored after blocking was disabled",
	})

	// passDuration tracks pass latency.
	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedhider_pass_duration_seconds",
		Help:    "Reconciliation pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	// passErrors counts per-item failures inside passes.
	passErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedhider_pass_errors_total",
		Help: "Total per-item hide or restore failures",
	})
)
