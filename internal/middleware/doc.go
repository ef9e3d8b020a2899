// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

// Package middleware holds net/http middleware for the ops API: request IDs
// propagated into the logging context, and Prometheus request metrics keyed
// by chi route pattern.
package middleware
