// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks local API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_api_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total local API requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_api_requests_total",
			Help: "Total local API requests",
		},
		[]string{"method", "path", "status"},
	)

	// UpstreamRequestDuration tracks upstream feedback API call duration.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_upstream_request_duration_seconds",
			Help:    "Upstream feedback API request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "status"},
	)

	// PollTicksTotal tracks poll ticks by refresh target kind. Kinds are a
	// bounded set (list partitions plus "conversation"), never raw IDs.
	PollTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_poll_ticks_total",
			Help: "Poll ticks fired, by refresh target kind",
		},
		[]string{"target"},
	)

	// PollCoalescedTotal tracks ticks skipped because a fetch for the same
	// target was still in flight.
	PollCoalescedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_poll_coalesced_total",
			Help: "Poll ticks skipped due to an outstanding fetch for the target kind",
		},
		[]string{"target"},
	)

	// StaleResponsesDropped tracks responses discarded because the user
	// navigated away before they arrived.
	StaleResponsesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_stale_responses_dropped_total",
			Help: "Fetch responses discarded by the identity/generation check",
		},
	)

	// SendsTotal tracks optimistic sends by outcome.
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_sends_total",
			Help: "Optimistic message sends by outcome",
		},
		[]string{"outcome"},
	)

	// SessionOpen tracks whether a conversation is currently focused.
	SessionOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_session_open",
			Help: "1 while a conversation is open and focused, else 0",
		},
	)

	// ConversationsCached tracks cached summaries per partition.
	ConversationsCached = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inbox_conversations_cached",
			Help: "Conversation summaries held in the list store",
		},
		[]string{"partition"},
	)

	// PushNotificationsTotal tracks NATS refresh nudges received.
	PushNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_push_notifications_total",
			Help: "Push refresh notifications received, by subject kind",
		},
		[]string{"kind"},
	)
)

// RecordRequest records metrics for a local API request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordUpstream records metrics for an upstream API call.
func RecordUpstream(operation, status string, duration float64) {
	UpstreamRequestDuration.WithLabelValues(operation, status).Observe(duration)
}
