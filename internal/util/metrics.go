package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Total number of completed checkouts",
	}, []string{"payment_method"})

	CheckoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_failures_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	StockLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_stock_lock_wait_seconds",
		Help:    "Time spent acquiring per-product stock locks",
		Buckets: prometheus.DefBuckets,
	})

	PaymentIntentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_payment_intent_latency_seconds",
		Help:    "Latency of payment intent creation",
		Buckets: prometheus.DefBuckets,
	})

	PaymentIntentFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_intent_failures_total",
		Help: "Total number of failed payment intent requests",
	})

	WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_paymob_webhooks_total",
		Help: "Paymob webhook deliveries by outcome",
	}, []string{"result"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_transitions_total",
		Help: "Order status transitions",
	}, []string{"from", "to"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notifications_total",
		Help: "Notifications created",
	}, []string{"type"})

	OTPIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_otp_issued_total",
		Help: "One-time passwords issued",
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
