// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package bridge connects a channel to NATS.

Subjects, for a prefix of "tether.feed":

	tether.feed.<type>              inbound frames, by their "type" field
	tether.feed.message             inbound frames without a usable type
	tether.feed.lifecycle.<topic>   connected, disconnected, error, reconnect_failed
	tether.feed.outbound            broker messages sent down the channel

Publishes run behind a gobreaker circuit breaker so a failing broker cannot
stall event dispatch. Outbound messages are paced by a token bucket and
must be valid JSON. A request sent to the outbound subject gets a reply of
{"ok":true} or {"ok":false,"error":"..."}.

EmbeddedServer runs an in-process nats-server for single-node deployments
and tests.
*/
package bridge
