// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package logging provides centralized zerolog-based logging for Tether.

Initialize once at startup, then log through the package-level helpers or
component loggers:

	logging.Init(logging.Config{Level: "info", Format: "json"})

	logging.Info().Str("url", url).Msg("Starting channel")

	chLogger := logging.With().
		Str("component", "connection").
		Str("channel", "market-feed").
		Logger()
	chLogger.Warn().Dur("delay", d).Msg("Reconnect scheduled")

# slog Bridge

The supervisor library logs through log/slog. NewSlogLogger returns an
slog.Logger whose records are written by zerolog, so supervisor events land
in the same stream with the same format.

# Request Context

The ops API stores a request ID in each request context; Ctx(ctx) returns a
logger that carries it.

# Testing

NewTestLogger writes JSON to any io.Writer so tests can assert on fields:

	var buf bytes.Buffer
	logger := logging.NewTestLogger(&buf)
*/
package logging
