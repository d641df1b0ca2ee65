package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of add-to-cart operations",
	})

	CartRemovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_removes_total",
		Help: "Total number of remove-from-cart operations",
	})

	CartDecrementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_decrements_total",
		Help: "Total number of cart line decrements",
	})

	CartMutationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_rejected_total",
		Help: "Total number of rejected cart mutations",
	}, []string{"reason"})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed at checkout",
	})

	CheckoutFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout processing",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of payment ledger entries recorded",
	})

	CatalogListLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_list_latency_seconds",
		Help:    "Latency of catalog listing queries",
		Buckets: prometheus.DefBuckets,
	})

	DeliveryCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_commands_total",
		Help: "Total number of admin delivery commands applied",
	}, []string{"command"})

	DeliveryCommandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_commands_rejected_total",
		Help: "Total number of rejected admin delivery commands",
	}, []string{"command", "reason"})

	OrdersFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Total number of placed orders picked up by the fulfillment worker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
