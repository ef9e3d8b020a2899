// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package services adapts Tether components to suture.Service.

  - ConnectionService connects a channel on Serve and disconnects it on
    shutdown. With restart-on-exhaustion it returns connection.ErrExhausted
    once the retry budget is spent, and suture's restart becomes a fresh
    Connect with a reset attempt counter.
  - BridgeService runs a NATS bridge until cancelled.
  - HTTPServerService turns ListenAndServe into a cancellable Serve with a
    bounded graceful shutdown.

Every wrapper implements fmt.Stringer so suture logs a readable name.
*/
package services
