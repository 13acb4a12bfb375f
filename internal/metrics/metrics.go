// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Checkout outcomes.
const (
	CheckoutSuccess           = "success"
	CheckoutEmptyCart         = "empty_cart"
	CheckoutInvalid           = "invalid_request"
	CheckoutInProgress        = "in_progress"
	CheckoutCartUnavailable   = "cart_unavailable"
	CheckoutPaymentInit       = "payment_init_failed"
	CheckoutDeclined          = "payment_declined"
	CheckoutPaymentConfirm    = "payment_confirm_failed"
	CheckoutPaymentIncomplete = "payment_incomplete"
	CheckoutOrderCreate       = "order_create_failed"
)

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luxe_checkouts_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "luxe_checkout_duration_seconds",
		Help:    "Latency of a full checkout, payment included",
		Buckets: prometheus.DefBuckets,
	})

	// PaidUnrecordedTotal counts payments that succeeded without a stored order.
	PaidUnrecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luxe_checkout_paid_unrecorded_total",
		Help: "Checkouts whose payment succeeded but whose order write failed",
	})

	CartClearFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luxe_cart_clear_failures_total",
		Help: "Carts that could not be cleared after a recorded order",
	})

	ReconcileEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luxe_reconcile_events_total",
		Help: "Payment notifications by reconciliation outcome",
	}, []string{"outcome"})

	UnmatchedPaymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luxe_unmatched_payments_total",
		Help: "Verified payment notifications with no matching order",
	})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luxe_orders_created_total",
		Help: "Orders written to the store",
	})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luxe_order_status_changes_total",
		Help: "Order status transitions by target status",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luxe_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luxe_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
)
