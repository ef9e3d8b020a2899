// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package transport provides the WebSocket handles used by the connection
manager.

Two drivers implement the same Dialer/Conn contract:

  - gorilla: github.com/gorilla/websocket (default)
  - coder:   github.com/coder/websocket

Every frame is a single text message. A Conn is safe for one reader and
any number of writers; Close may be called concurrently with both.
*/
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Driver names accepted by New.
const (
	DriverGorilla = "gorilla"
	DriverCoder   = "coder"
)

// Default tuning values.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultReadLimit        = 1 << 20 // 1 MiB
	closeGracePeriod        = time.Second
)

var (
	// ErrClosed is returned by Write and Read after Close.
	ErrClosed = errors.New("transport: connection closed")

	// ErrUnknownDriver is returned by New for an unsupported driver name.
	ErrUnknownDriver = errors.New("transport: unknown driver")
)

// Conn is a live WebSocket handle.
type Conn interface {
	// Write sends one text frame. The frame is abandoned when ctx is done
	// or the write timeout elapses.
	Write(ctx context.Context, frame []byte) error

	// Read blocks until a data frame arrives, the peer closes, or the
	// handle is closed locally.
	Read(ctx context.Context) ([]byte, error)

	// Close sends a normal-closure frame and releases the handle. It does
	// not wait for the peer's acknowledgement.
	Close() error
}

// Dialer opens Conns.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Options tune the handshake and framing of every driver.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
	Header           http.Header
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		ReadLimit:        DefaultReadLimit,
	}
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	return o
}

// New returns the Dialer for the named driver.
func New(driver string, opts Options) (Dialer, error) {
	switch driver {
	case "", DriverGorilla:
		return NewGorilla(opts), nil
	case DriverCoder:
		return NewCoder(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// dialError annotates a failed handshake with the HTTP status, if any.
func dialError(resp *http.Response, err error) error {
	if resp != nil {
		return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
	}
	return fmt.Errorf("websocket dial failed: %w", err)
}

// writeDeadline returns the earlier of the ctx deadline and now+timeout.
func writeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
