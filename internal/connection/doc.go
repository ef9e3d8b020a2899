// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package connection implements the Manager: a client that keeps one logical
bidirectional message channel available over a WebSocket that may fail to
open, drop, or be closed by the peer at any time.

# Lifecycle

	Idle --Connect--> Connecting --ok--> Open
	                      |               |
	                    fail          drop/close
	                      v               v
	                  Reconnecting <------+
	                      |  ^
	          timer fires |  | fail (attempts < MaxAttempts)
	                      v  |
	                   Connecting
	                      |
	     attempts >= MaxAttempts --> Exhausted

Disconnect moves Connecting, Open and Reconnecting to Closed. Closed and
Exhausted only leave through another Connect, which resets the attempt
counter.

# Backoff

After the n-th consecutive failure the next attempt waits
ReconnectDelay * 2^(n-1): 1s, 2s, 4s, 8s with the defaults. When n reaches
MaxAttempts no timer is armed and the channel becomes Exhausted.

# Outbound Queue

Send never blocks on I/O. Payloads are encoded at Send time and appended to
a FIFO queue. A per-connection writer drains the queue in order while the
channel is Open. Frames that fail to write go back to the head of the queue.

# Events

Handlers are registered per topic with On. Lifecycle topics are
"connected", "disconnected", "error" and "reconnect_failed". Every inbound
frame is delivered to "message" handlers and to handlers of the frame's
"type" field. Handlers run outside the manager's lock, one event at a time,
in emission order, so they may call back into the Manager.

# Usage

	dialer := transport.NewGorilla(transport.DefaultOptions())
	mgr, err := connection.New("wss://example.com/feed", dialer, connection.DefaultOptions())
	if err != nil {
		return err
	}
	mgr.On("trade", func(ev connection.Event) {
		var t Trade
		_ = ev.Message.Decode(&t)
	})
	_ = mgr.Connect()
	_ = mgr.Send(map[string]any{"type": "subscribe", "channel": "trades"})
*/
package connection
