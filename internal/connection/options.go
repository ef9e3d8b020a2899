// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tether/internal/clock"
)

// Default option values.
const (
	DefaultMaxAttempts       = 5
	DefaultReconnectDelay    = time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// OverflowPolicy decides what happens when a bounded queue is full.
type OverflowPolicy string

const (
	// OverflowReject makes Send return ErrQueueFull.
	OverflowReject OverflowPolicy = "reject"
	// OverflowDropOldest discards the head of the queue and emits an error
	// event.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// Options tune a Manager. They are fixed for its lifetime.
type Options struct {
	// Name labels logs and metrics. Defaults to the URL host.
	Name string

	// MaxAttempts is the number of consecutive failures after which the
	// channel gives up.
	MaxAttempts int

	// ReconnectDelay is the backoff base.
	ReconnectDelay time.Duration

	// HeartbeatInterval is the period of {"type":"ping"} frames while Open.
	HeartbeatInterval time.Duration

	// PongTimeout, when positive, treats a heartbeat that sees no inbound
	// frame within the timeout as a dropped connection. Zero keeps the
	// heartbeat send-only.
	PongTimeout time.Duration

	// Jitter adds up to Jitter*delay of random extra wait to each backoff.
	Jitter float64

	// QueueLimit bounds the outbound queue. Zero means unbounded.
	QueueLimit int

	// Overflow applies when QueueLimit is reached.
	Overflow OverflowPolicy
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:       DefaultMaxAttempts,
		ReconnectDelay:    DefaultReconnectDelay,
		HeartbeatInterval: DefaultHeartbeatInterval,
		Overflow:          OverflowReject,
	}
}

// normalize fills zero values with defaults and rejects negative ones.
func (o Options) normalize() (Options, error) {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.HeartbeatInterval == 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if o.Overflow == "" {
		o.Overflow = OverflowReject
	}

	switch {
	case o.MaxAttempts < 0:
		return o, fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidOptions, o.MaxAttempts)
	case o.ReconnectDelay < 0:
		return o, fmt.Errorf("%w: reconnect delay must be positive, got %s", ErrInvalidOptions, o.ReconnectDelay)
	case o.HeartbeatInterval < 0:
		return o, fmt.Errorf("%w: heartbeat interval must be positive, got %s", ErrInvalidOptions, o.HeartbeatInterval)
	case o.PongTimeout < 0:
		return o, fmt.Errorf("%w: pong timeout must not be negative, got %s", ErrInvalidOptions, o.PongTimeout)
	case o.Jitter < 0 || o.Jitter > 1:
		return o, fmt.Errorf("%w: jitter must be within [0,1], got %v", ErrInvalidOptions, o.Jitter)
	case o.QueueLimit < 0:
		return o, fmt.Errorf("%w: queue limit must not be negative, got %d", ErrInvalidOptions, o.QueueLimit)
	case o.Overflow != OverflowReject && o.Overflow != OverflowDropOldest:
		return o, fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidOptions, o.Overflow)
	}
	return o, nil
}

// Option customizes Manager collaborators.
type Option func(*Manager)

// WithClock replaces the wall clock used for backoff and heartbeat timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger replaces the base logger. The channel field is still added.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.baseLogger = &l }
}

// WithRand replaces the jitter source. f must return values in [0,1).
func WithRand(f func() float64) Option {
	return func(m *Manager) { m.rand = f }
}

func defaultRand() float64 { return rand.Float64() }
