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

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tether/internal/logging"
)

// GorillaDialer dials with github.com/gorilla/websocket.
type GorillaDialer struct {
	opts   Options
	dialer *websocket.Dialer
}

// NewGorilla creates a GorillaDialer.
func NewGorilla(opts Options) *GorillaDialer {
	opts = opts.withDefaults()
	return &GorillaDialer{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
	}
}

// Dial performs the WebSocket handshake.
func (d *GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.opts.Header)
	if err != nil {
		return nil, dialError(resp, err)
	}
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("failed to close handshake response body")
		}
	}

	conn.SetReadLimit(d.opts.ReadLimit)
	return &gorillaConn{conn: conn, writeTimeout: d.opts.WriteTimeout}, nil
}

type gorillaConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *gorillaConn) Write(ctx context.Context, frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(writeDeadline(ctx, c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if c.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *gorillaConn) Read(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if d, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(d); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *gorillaConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		// WriteControl is safe to call concurrently with WriteMessage.
		if werr := c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		); werr != nil {
			logging.Debug().Err(werr).Msg("failed to send close frame")
		}
		err = c.conn.Close()
	})
	return err
}
