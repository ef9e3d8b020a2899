// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Channel lifecycle metrics
	ChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tether_channel_state",
			Help: "Current lifecycle state of a channel (0=idle, 1=connecting, 2=open, 3=closed, 4=reconnecting, 5=exhausted)",
		},
		[]string{"channel"},
	)

	ChannelConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_connect_attempts_total",
			Help: "Total number of transport dial attempts",
		},
		[]string{"channel", "result"}, // "success", "failure"
	)

	ChannelReconnectsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_reconnects_scheduled_total",
			Help: "Total number of backoff timers armed",
		},
		[]string{"channel"},
	)

	ChannelReconnectDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tether_reconnect_delay_seconds",
			Help:    "Backoff delay chosen for each scheduled reconnect",
			Buckets: []float64{.5, 1, 2, 4, 8, 16, 32, 64, 128},
		},
		[]string{"channel"},
	)

	ChannelExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_exhausted_total",
			Help: "Total number of times a channel gave up reconnecting",
		},
		[]string{"channel"},
	)

	ChannelDisconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_disconnects_total",
			Help: "Total number of established connections that dropped",
		},
		[]string{"channel", "reason"}, // "transport", "pong_timeout", "write"
	)

	// Message flow metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_messages_sent_total",
			Help: "Total number of frames handed to the transport",
		},
		[]string{"channel", "kind"}, // "data", "heartbeat"
	)

	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_messages_received_total",
			Help: "Total number of well-formed inbound frames",
		},
		[]string{"channel"},
	)

	MalformedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_malformed_frames_total",
			Help: "Total number of inbound frames dropped as undecodable",
		},
		[]string{"channel"},
	)

	SubscriberPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_subscriber_panics_total",
			Help: "Total number of recovered subscriber panics",
		},
		[]string{"channel", "topic"},
	)

	// Outbound queue metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tether_queue_depth",
			Help: "Current number of payloads awaiting transmission",
		},
		[]string{"channel"},
	)

	QueueOverflow = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_queue_overflow_total",
			Help: "Total number of payloads rejected or dropped by the queue bound",
		},
		[]string{"channel", "policy"}, // "reject", "drop_oldest"
	)

	// Bridge metrics
	BridgePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_bridge_published_total",
			Help: "Total number of inbound frames published to the broker",
		},
		[]string{"channel", "result"}, // "success", "failure", "rejected"
	)

	BridgeForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_bridge_forwarded_total",
			Help: "Total number of broker messages forwarded to the channel",
		},
		[]string{"channel", "result"}, // "success", "failure"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tether_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tether_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tether_api_request_duration_seconds",
			Help:    "Ops API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// SetChannelState records the numeric lifecycle state of a channel.
func SetChannelState(channel string, state int) {
	ChannelState.WithLabelValues(channel).Set(float64(state))
}

// RecordConnectAttempt records the outcome of one dial.
func RecordConnectAttempt(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ChannelConnectAttempts.WithLabelValues(channel, result).Inc()
}

// RecordReconnectScheduled records an armed backoff timer.
func RecordReconnectScheduled(channel string, delay time.Duration) {
	ChannelReconnectsScheduled.WithLabelValues(channel).Inc()
	ChannelReconnectDelay.WithLabelValues(channel).Observe(delay.Seconds())
}

// RecordExhausted records a channel entering the exhausted state.
func RecordExhausted(channel string) {
	ChannelExhausted.WithLabelValues(channel).Inc()
}

// RecordDisconnect records a dropped connection.
func RecordDisconnect(channel, reason string) {
	ChannelDisconnects.WithLabelValues(channel, reason).Inc()
}

// RecordMessageSent records one frame handed to the transport.
func RecordMessageSent(channel string, heartbeat bool) {
	kind := "data"
	if heartbeat {
		kind = "heartbeat"
	}
	MessagesSent.WithLabelValues(channel, kind).Inc()
}

// RecordMessageReceived records one decoded inbound frame.
func RecordMessageReceived(channel string) {
	MessagesReceived.WithLabelValues(channel).Inc()
}

// RecordMalformedFrame records a dropped inbound frame.
func RecordMalformedFrame(channel string) {
	MalformedFrames.WithLabelValues(channel).Inc()
}

// RecordSubscriberPanic records a recovered subscriber panic.
func RecordSubscriberPanic(channel, topic string) {
	SubscriberPanics.WithLabelValues(channel, topic).Inc()
}

// SetQueueDepth records the outbound queue length.
func SetQueueDepth(channel string, depth int) {
	QueueDepth.WithLabelValues(channel).Set(float64(depth))
}

// RecordQueueOverflow records a payload lost to the queue bound.
func RecordQueueOverflow(channel, policy string) {
	QueueOverflow.WithLabelValues(channel, policy).Inc()
}

// RecordBridgePublish records the outcome of publishing a frame to the broker.
func RecordBridgePublish(channel, result string) {
	BridgePublished.WithLabelValues(channel, result).Inc()
}

// RecordBridgeForward records the outcome of forwarding a broker message.
func RecordBridgeForward(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	BridgeForwarded.WithLabelValues(channel, result).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordAPIRequest records an ops API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
