// Package metrics exposes the Prometheus instruments for the chat gateway,
// the delivery router and the conversation store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway
	GatewayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "supportchat_gateway_connections",
			Help: "Current number of live socket connections",
		},
	)

	GatewayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_gateway_events_total",
			Help: "Inbound socket events by type and outcome",
		},
		[]string{"event", "outcome"}, // outcome: ok, dropped
	)

	GatewayDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_gateway_dropped_events_total",
			Help: "Inbound socket events dropped at the gateway boundary",
		},
		[]string{"event", "reason"}, // reason: auth, validation, malformed, store, rate_limited, not_found, forbidden
	)

	// Delivery
	DeliveryEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_delivery_emitted_total",
			Help: "Events written to connection send buffers",
		},
		[]string{"event"},
	)

	DeliveryDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_delivery_dropped_total",
			Help: "Events that could not be handed to a bound connection",
		},
		[]string{"event"},
	)

	// Store
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supportchat_store_operation_duration_seconds",
			Help:    "Conversation store call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportchat_store_errors_total",
			Help: "Conversation store call failures",
		},
		[]string{"operation"},
	)
)

// ObserveStore records a store call started at start.
func ObserveStore(operation string, start time.Time, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// Dropped counts a gateway event dropped for reason.
func Dropped(event, reason string) {
	GatewayEvents.WithLabelValues(event, "dropped").Inc()
	GatewayDropped.WithLabelValues(event, reason).Inc()
}

// Handled counts a gateway event that ran to completion.
func Handled(event string) {
	GatewayEvents.WithLabelValues(event, "ok").Inc()
}
