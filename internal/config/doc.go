// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package config loads Tether configuration with koanf.

Values are layered, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: $CONFIG_PATH, ./tether.yaml, /etc/tether/config.yaml
 3. Environment variables from an explicit mapping table

Example tether.yaml:

	connection:
	  name: market-feed
	  url: wss://stream.example.com/v1
	  max_attempts: 5
	  reconnect_delay: 1s
	  heartbeat_interval: 30s
	  pong_timeout: 0s
	transport:
	  driver: gorilla
	  headers:
	    - "Authorization: Bearer token"
	queue:
	  limit: 10000
	  overflow: drop_oldest
	bridge:
	  enabled: true
	  url: nats://127.0.0.1:4222
	  subject_prefix: tether.market
	server:
	  port: 9464

Selected environment variables:

	TETHER_URL, TETHER_MAX_ATTEMPTS, TETHER_RECONNECT_DELAY,
	TETHER_HEARTBEAT_INTERVAL, TETHER_PONG_TIMEOUT, TETHER_QUEUE_LIMIT,
	NATS_ENABLED, NATS_URL, HTTP_PORT, LOG_LEVEL, LOG_FORMAT

Durations accept Go duration strings ("1500ms", "30s").

Validation combines go-playground/validator tags with cross-field checks
in Config.Validate.
*/
package config
