// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package metrics provides Prometheus metrics for Tether channels.

All collectors are registered with the default registry through promauto
and are exposed by the ops API at /metrics:

	curl http://localhost:9464/metrics

# Available Metrics

Channel lifecycle (label: channel):
  - tether_channel_state: numeric state (gauge)
  - tether_connect_attempts_total: dials by result (counter)
  - tether_reconnects_scheduled_total: armed backoff timers (counter)
  - tether_reconnect_delay_seconds: chosen backoff delays (histogram)
  - tether_exhausted_total: retry budgets consumed (counter)
  - tether_disconnects_total: dropped connections by reason (counter)

Message flow (label: channel):
  - tether_messages_sent_total: frames written, data or heartbeat (counter)
  - tether_messages_received_total: decoded inbound frames (counter)
  - tether_malformed_frames_total: dropped inbound frames (counter)
  - tether_subscriber_panics_total: recovered handler panics (counter)
  - tether_queue_depth: payloads awaiting transmission (gauge)
  - tether_queue_overflow_total: payloads lost to the queue bound (counter)

Bridge and circuit breaker:
  - tether_bridge_published_total, tether_bridge_forwarded_total
  - tether_circuit_breaker_state, tether_circuit_breaker_transitions_total

Ops API:
  - tether_api_requests_total, tether_api_request_duration_seconds

# Usage

Components call the Record* helpers rather than touching collectors:

	metrics.RecordConnectAttempt("market-feed", err)
	metrics.SetQueueDepth("market-feed", depth)
*/
package metrics
