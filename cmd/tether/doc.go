// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Command tether keeps one WebSocket channel connected and relays it to NATS.

Configuration comes from defaults, an optional YAML file ($CONFIG_PATH,
./tether.yaml or /etc/tether/config.yaml) and environment variables:

	TETHER_URL=wss://stream.example.com/v1 \
	NATS_ENABLED=true NATS_EMBEDDED=true \
	tether

The process runs a suture supervisor tree until SIGINT or SIGTERM. The ops
server listens on :9464 by default and serves /healthz, /state and /metrics.
*/
package main
