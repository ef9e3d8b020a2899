// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// CoderDialer dials with github.com/coder/websocket.
type CoderDialer struct {
	opts Options
}

// NewCoder creates a CoderDialer.
func NewCoder(opts Options) *CoderDialer {
	return &CoderDialer{opts: opts.withDefaults()}
}

// Dial performs the WebSocket handshake. The handshake is bounded by
// HandshakeTimeout; the returned Conn outlives ctx.
func (d *CoderDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.opts.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPHeader: d.opts.Header,
	})
	if err != nil {
		return nil, dialError(resp, err)
	}

	conn.SetReadLimit(d.opts.ReadLimit)

	// Read contexts are owned by the Conn so a caller's ctx ending does not
	// tear the connection down mid-frame.
	readCtx, readCancel := context.WithCancel(context.Background())
	return &coderConn{
		conn:         conn,
		writeTimeout: d.opts.WriteTimeout,
		readCtx:      readCtx,
		readCancel:   readCancel,
	}, nil
}

type coderConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	readCtx    context.Context
	readCancel context.CancelFunc

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *coderConn) Write(ctx context.Context, frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	writeCtx, cancel := context.WithDeadline(ctx, writeDeadline(ctx, c.writeTimeout))
	defer cancel()

	if err := c.conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		if c.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *coderConn) Read(ctx context.Context) ([]byte, error) {
	readCtx := c.readCtx
	if d, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithDeadline(readCtx, d)
		defer cancel()
	}

	_, data, err := c.conn.Read(readCtx)
	if err != nil {
		if c.closed.Load() {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return data, nil
}

// Close sends a normal-closure frame and returns without waiting for the
// peer. The handshake completes in the background, bounded by the
// library's own close timeout, and the read context is released after it.
func (c *coderConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		go func() {
			defer c.readCancel()
			if err := c.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
				_ = c.conn.CloseNow()
			}
		}()
	})
	return nil
}
