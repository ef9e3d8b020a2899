// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tether/internal/connection"
)

// stubChannel returns waitErr from Wait, or blocks until ctx ends when it
// is nil.
type stubChannel struct {
	connectErr  error
	waitErr     error
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (c *stubChannel) Name() string { return "feed" }

func (c *stubChannel) Connect() error {
	c.connects.Add(1)
	return c.connectErr
}

func (c *stubChannel) Disconnect() { c.disconnects.Add(1) }

func (c *stubChannel) Wait(ctx context.Context) error {
	if c.waitErr != nil {
		return c.waitErr
	}
	<-ctx.Done()
	return ctx.Err()
}

var _ suture.Service = (*ConnectionService)(nil)

func TestConnectionService_DisconnectsOnShutdown(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{}
	svc := NewConnectionService(ch, false)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if ch.connects.Load() != 1 || ch.disconnects.Load() != 1 {
		t.Errorf("connects = %d, disconnects = %d, want 1 and 1", ch.connects.Load(), ch.disconnects.Load())
	}
	if svc.String() != "connection:feed" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestConnectionService_Exhaustion(t *testing.T) {
	t.Parallel()

	t.Run("restart", func(t *testing.T) {
		t.Parallel()
		ch := &stubChannel{waitErr: connection.ErrExhausted}

		err := NewConnectionService(ch, true).Serve(context.Background())
		if !errors.Is(err, connection.ErrExhausted) {
			t.Errorf("Serve() error = %v, want ErrExhausted", err)
		}
	})

	t.Run("stay down", func(t *testing.T) {
		t.Parallel()
		ch := &stubChannel{waitErr: connection.ErrExhausted}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := NewConnectionService(ch, false).Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() error = %v, want DeadlineExceeded", err)
		}
	})
}

func TestConnectionService_ClosedManager(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ch   *stubChannel
	}{
		{"connect", &stubChannel{connectErr: connection.ErrClosed}},
		{"wait", &stubChannel{waitErr: connection.ErrClosed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewConnectionService(tt.ch, true).Serve(context.Background())
			if !errors.Is(err, suture.ErrDoNotRestart) {
				t.Errorf("Serve() error = %v, want ErrDoNotRestart", err)
			}
		})
	}
}

func TestConnectionService_SupervisorRestartsExhausted(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{waitErr: connection.ErrExhausted}
	sup := suture.New("test", suture.Spec{
		FailureThreshold: 100,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewConnectionService(ch, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for ch.connects.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("connects = %d, want at least 3", ch.connects.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type stubRunner struct {
	err error
}

func (r stubRunner) Run(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestBridgeService(t *testing.T) {
	t.Parallel()

	startErr := errors.New("connect to NATS: no servers")
	err := NewBridgeService(stubRunner{err: startErr}).Serve(context.Background())
	if !errors.Is(err, startErr) {
		t.Errorf("Serve() error = %v, want %v", err, startErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewBridgeService(stubRunner{})
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if svc.String() != "nats-bridge" {
		t.Errorf("String() = %q", svc.String())
	}
}
