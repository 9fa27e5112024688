// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts successful account registrations.
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_registrations_total",
		Help: "Total number of registered accounts",
	})

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_login_attempts_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// SwapTransitionsTotal counts swap request status changes by target status.
	SwapTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_transitions_total",
		Help: "Total number of swap request transitions by resulting status",
	}, []string{"status"})

	// NotificationsTotal counts notifications pushed by type and delivery result.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_total",
		Help: "Total number of notifications pushed",
	}, []string{"type", "result"})

	// SearchIndexErrors counts failed search index writes.
	SearchIndexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillswap_search_index_errors_total",
		Help: "Total number of failed search index writes",
	})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_websocket_connections",
		Help: "Number of active notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)
