// Package metrics exposes the ordering counters scraped via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordering_orders_placed_total",
		Help: "Orders successfully placed.",
	})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordering_orders_cancelled_total",
		Help: "Orders cancelled with stock restored.",
	})

	InsufficientStockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordering_insufficient_stock_total",
		Help: "Order attempts rejected because stock ran short.",
	})

	ConflictRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordering_concurrency_conflicts_total",
		Help: "Order attempts aborted by serialization or deadlock conflicts.",
	})
)
