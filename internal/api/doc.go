// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package api serves Tether's operational HTTP endpoints with chi.

	GET /healthz   200 while the channel is open, 503 otherwise
	GET /state     channel Stats as JSON, plus the bridge breaker state
	GET /metrics   Prometheus exposition

Every route is rate limited per client IP with httprate, tagged with a
request ID and counted in tether_api_requests_total.
*/
package api
