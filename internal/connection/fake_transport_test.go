// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/tether/internal/clock"
	"github.com/tomtom215/tether/internal/transport"
)

const waitTimeout = 2 * time.Second

var errRefused = errors.New("connection refused")

type dialResult struct {
	conn *fakeConn
	err  error
}

// fakeDialer blocks every Dial until the test hands it a result.
type fakeDialer struct {
	calls   atomic.Int32
	results chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{results: make(chan dialResult)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (transport.Conn, error) {
	d.calls.Add(1)
	select {
	case r := <-d.results:
		if r.err != nil {
			return nil, r.err
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDialer) Calls() int { return int(d.calls.Load()) }

func (d *fakeDialer) respond(t *testing.T, r dialResult) {
	t.Helper()
	select {
	case d.results <- r:
	case <-time.After(waitTimeout):
		t.Fatal("no dial attempt was pending")
	}
}

// succeed completes the pending dial with a new fakeConn.
func (d *fakeDialer) succeed(t *testing.T) *fakeConn {
	t.Helper()
	c := newFakeConn()
	d.respond(t, dialResult{conn: c})
	return c
}

// fail completes the pending dial with err.
func (d *fakeDialer) fail(t *testing.T, err error) {
	t.Helper()
	d.respond(t, dialResult{err: err})
}

// fakeConn is an in-memory transport handle.
type fakeConn struct {
	inbound chan []byte
	readErr chan error
	writes  chan []byte
	closed  chan struct{}
	once    sync.Once

	mu       sync.Mutex
	writeErr error
	held     chan struct{}
	release  chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		readErr: make(chan error, 1),
		writes:  make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Write(_ context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}

	c.mu.Lock()
	held, release := c.held, c.release
	c.mu.Unlock()
	if held != nil {
		close(held)
		<-release
	}

	c.mu.Lock()
	err := c.writeErr
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.writes <- append([]byte(nil), frame...)
	return nil
}

func (c *fakeConn) Read(_ context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.readErr:
		return nil, err
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// holdWrites parks the next Write until the returned release func runs.
// The returned channel closes once a Write is parked.
func (c *fakeConn) holdWrites() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = make(chan struct{})
	c.release = make(chan struct{})
	return c.held, func() { close(c.release) }
}

// deliver pushes an inbound frame.
func (c *fakeConn) deliver(frame string) { c.inbound <- []byte(frame) }

// drop simulates the peer going away.
func (c *fakeConn) drop(err error) { c.readErr <- err }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// nextWrite returns the next written frame.
func (c *fakeConn) nextWrite(t *testing.T) string {
	t.Helper()
	select {
	case w := <-c.writes:
		return string(w)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a write")
		return ""
	}
}

// assertNoWrite fails if anything is written within a short window.
func (c *fakeConn) assertNoWrite(t *testing.T) {
	t.Helper()
	select {
	case w := <-c.writes:
		t.Fatalf("unexpected write: %s", w)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorder collects events from chosen topics.
type recorder struct {
	ch chan Event
}

func record(m *Manager, topics ...string) *recorder {
	r := &recorder{ch: make(chan Event, 256)}
	for _, topic := range topics {
		m.On(topic, func(ev Event) { r.ch <- ev })
	}
	return r
}

// expect waits for the next event on topic, skipping others.
func (r *recorder) expect(t *testing.T, topic string) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-r.ch:
			if ev.Topic == topic {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", topic)
			return Event{}
		}
	}
}

// assertNone fails if an event on topic arrives within a short window.
func (r *recorder) assertNone(t *testing.T, topic string) {
	t.Helper()
	deadline := time.After(50 * time.Millisecond)
	for {
		select {
		case ev := <-r.ch:
			if ev.Topic == topic {
				t.Fatalf("unexpected %q event: %+v", topic, ev)
			}
		case <-deadline:
			return
		}
	}
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", m.State(), want)
}

// harness bundles a Manager with its fakes.
type harness struct {
	m      *Manager
	dialer *fakeDialer
	clock  *clock.FakeClock
	events *recorder
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	if opts.Name == "" {
		opts.Name = t.Name()
	}
	d := newFakeDialer()
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	m, err := New("ws://feed.test/socket", d, opts, WithClock(clk))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	return &harness{
		m:      m,
		dialer: d,
		clock:  clk,
		events: record(m, TopicConnected, TopicDisconnected, TopicError, TopicReconnectFailed),
	}
}

// open connects and completes the dial.
func (h *harness) open(t *testing.T) *fakeConn {
	t.Helper()
	if err := h.m.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	conn := h.dialer.succeed(t)
	h.events.expect(t, TopicConnected)
	return conn
}
