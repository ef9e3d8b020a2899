// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

// Package validation wraps a singleton go-playground/validator instance
// used to check configuration structs.
//
// Field names in messages follow the koanf tag when the validator is told
// to use it (see config.Validate), so errors read like the YAML keys:
//
//	connection.url must be a ws:// or wss:// URL
package validation
