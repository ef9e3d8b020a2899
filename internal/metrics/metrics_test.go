// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordConnectAttempt(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{name: "successful dial", err: nil, result: "success"},
		{name: "failed dial", err: errors.New("connection refused"), result: "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := "test-connect-" + tt.result
			before := testutil.ToFloat64(ChannelConnectAttempts.WithLabelValues(channel, tt.result))

			RecordConnectAttempt(channel, tt.err)

			after := testutil.ToFloat64(ChannelConnectAttempts.WithLabelValues(channel, tt.result))
			if after-before != 1 {
				t.Errorf("expected counter to increase by 1, got %v", after-before)
			}
		})
	}
}

func TestSetChannelState(t *testing.T) {
	SetChannelState("test-state", 2)
	if got := testutil.ToFloat64(ChannelState.WithLabelValues("test-state")); got != 2 {
		t.Errorf("ChannelState = %v, want 2", got)
	}

	SetChannelState("test-state", 5)
	if got := testutil.ToFloat64(ChannelState.WithLabelValues("test-state")); got != 5 {
		t.Errorf("ChannelState = %v, want 5", got)
	}
}

func TestRecordReconnectScheduled(t *testing.T) {
	before := testutil.ToFloat64(ChannelReconnectsScheduled.WithLabelValues("test-backoff"))

	RecordReconnectScheduled("test-backoff", time.Second)
	RecordReconnectScheduled("test-backoff", 2*time.Second)

	after := testutil.ToFloat64(ChannelReconnectsScheduled.WithLabelValues("test-backoff"))
	if after-before != 2 {
		t.Errorf("expected 2 scheduled reconnects, got %v", after-before)
	}
	if n := testutil.CollectAndCount(ChannelReconnectDelay); n == 0 {
		t.Error("expected reconnect delay histogram to have series")
	}
}

func TestRecordMessageSent(t *testing.T) {
	data := testutil.ToFloat64(MessagesSent.WithLabelValues("test-sent", "data"))
	beat := testutil.ToFloat64(MessagesSent.WithLabelValues("test-sent", "heartbeat"))

	RecordMessageSent("test-sent", false)
	RecordMessageSent("test-sent", true)
	RecordMessageSent("test-sent", true)

	if got := testutil.ToFloat64(MessagesSent.WithLabelValues("test-sent", "data")) - data; got != 1 {
		t.Errorf("data frames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(MessagesSent.WithLabelValues("test-sent", "heartbeat")) - beat; got != 2 {
		t.Errorf("heartbeat frames = %v, want 2", got)
	}
}

func TestQueueMetrics(t *testing.T) {
	SetQueueDepth("test-queue", 7)
	if got := testutil.ToFloat64(QueueDepth.WithLabelValues("test-queue")); got != 7 {
		t.Errorf("QueueDepth = %v, want 7", got)
	}

	before := testutil.ToFloat64(QueueOverflow.WithLabelValues("test-queue", "drop_oldest"))
	RecordQueueOverflow("test-queue", "drop_oldest")
	if got := testutil.ToFloat64(QueueOverflow.WithLabelValues("test-queue", "drop_oldest")) - before; got != 1 {
		t.Errorf("QueueOverflow delta = %v, want 1", got)
	}
}

func TestRecordCircuitBreakerTransition(t *testing.T) {
	RecordCircuitBreakerTransition("test-breaker", "closed", "open", 2)

	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != 2 {
		t.Errorf("CircuitBreakerState = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("test-breaker", "closed", "open")); got < 1 {
		t.Errorf("expected at least one transition, got %v", got)
	}
}

func TestRecordBridgeMetrics(t *testing.T) {
	pub := testutil.ToFloat64(BridgePublished.WithLabelValues("test-bridge", "rejected"))
	fwd := testutil.ToFloat64(BridgeForwarded.WithLabelValues("test-bridge", "failure"))

	RecordBridgePublish("test-bridge", "rejected")
	RecordBridgeForward("test-bridge", errors.New("queue full"))

	if got := testutil.ToFloat64(BridgePublished.WithLabelValues("test-bridge", "rejected")) - pub; got != 1 {
		t.Errorf("BridgePublished delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BridgeForwarded.WithLabelValues("test-bridge", "failure")) - fwd; got != 1 {
		t.Errorf("BridgeForwarded delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200"))

	RecordAPIRequest("GET", "/healthz", "200", 3*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200")) - before; got != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", got)
	}
}

func TestCountersAreMonotonic(t *testing.T) {
	for i := 0; i < 3; i++ {
		RecordExhausted("test-monotonic")
		RecordDisconnect("test-monotonic", "transport")
		RecordMalformedFrame("test-monotonic")
		RecordSubscriberPanic("test-monotonic", "message")
		RecordMessageReceived("test-monotonic")
	}

	checks := map[string]float64{
		"exhausted":   testutil.ToFloat64(ChannelExhausted.WithLabelValues("test-monotonic")),
		"disconnects": testutil.ToFloat64(ChannelDisconnects.WithLabelValues("test-monotonic", "transport")),
		"malformed":   testutil.ToFloat64(MalformedFrames.WithLabelValues("test-monotonic")),
		"panics":      testutil.ToFloat64(SubscriberPanics.WithLabelValues("test-monotonic", "message")),
		"received":    testutil.ToFloat64(MessagesReceived.WithLabelValues("test-monotonic")),
	}
	for name, got := range checks {
		if got != 3 {
			t.Errorf("%s = %v, want 3", name, got)
		}
	}
}
