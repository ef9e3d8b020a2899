// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tether/internal/clock"
	"github.com/tomtom215/tether/internal/logging"
	"github.com/tomtom215/tether/internal/metrics"
	"github.com/tomtom215/tether/internal/transport"
)

// Manager keeps one logical channel open over a WebSocket endpoint.
//
// All state lives behind mu. Transport I/O runs on per-attempt goroutines
// that report back tagged with the generation they were started under;
// reports from an older generation are ignored.
type Manager struct {
	url    string
	name   string
	opts   Options
	dialer transport.Dialer
	clock  clock.Clock
	rand   func() float64

	baseLogger *zerolog.Logger
	logger     zerolog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	attempts int
	disposed bool

	// per-attempt resources
	cancel      context.CancelFunc
	conn        transport.Conn
	connID      string
	connectedAt time.Time
	wake        chan struct{}
	pingDue     bool
	backoff     clock.Timer
	heartbeat   clock.Timer
	pongTimer   clock.Timer

	queue frameQueue

	subs      map[string][]*Subscription
	nextSubID uint64
	observers []StateObserver
	pending   []notice
	draining  bool

	exhausted chan struct{}
	done      chan struct{}

	connects    atomic.Uint64
	disconnects atomic.Uint64
	sent        atomic.Uint64
	received    atomic.Uint64
	heartbeats  atomic.Uint64
	dropped     atomic.Uint64
}

// New creates a Manager in the Idle state. Zero-valued options take their
// defaults.
func New(endpoint string, dialer transport.Dialer, opts Options, extra ...Option) (*Manager, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidOptions)
	}
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer is required", ErrInvalidOptions)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		url:       endpoint,
		name:      opts.Name,
		opts:      opts,
		dialer:    dialer,
		clock:     clock.Real(),
		rand:      defaultRand,
		subs:      make(map[string][]*Subscription),
		exhausted: make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range extra {
		o(m)
	}

	if m.name == "" {
		m.name = endpointName(endpoint)
	}

	base := logging.WithComponent("connection")
	if m.baseLogger != nil {
		base = *m.baseLogger
	}
	m.logger = base.With().Str("channel", m.name).Logger()

	metrics.SetChannelState(m.name, int(StateIdle))
	metrics.SetQueueDepth(m.name, 0)
	return m, nil
}

func endpointName(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}

// Name returns the channel label.
func (m *Manager) Name() string { return m.name }

// URL returns the endpoint.
func (m *Manager) URL() string { return m.url }

// Options returns the normalized options.
func (m *Manager) Options() Options { return m.opts }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of counters and state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		Name:             m.name,
		URL:              m.url,
		State:            m.state,
		Attempts:         m.attempts,
		QueueDepth:       m.queue.Len(),
		ConnID:           m.connID,
		Connects:         m.connects.Load(),
		Disconnects:      m.disconnects.Load(),
		MessagesSent:     m.sent.Load(),
		MessagesReceived: m.received.Load(),
		HeartbeatsSent:   m.heartbeats.Load(),
		Dropped:          m.dropped.Load(),
	}
	if !m.connectedAt.IsZero() {
		since := m.connectedAt
		stats.ConnectedSince = &since
	}
	return stats
}

// Connect starts connecting. It is a no-op while Connecting, Open or
// Reconnecting. From Idle, Closed or Exhausted it resets the attempt
// counter and dials.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrClosed
	}

	switch m.state {
	case StateConnecting, StateOpen, StateReconnecting:
		m.mu.Unlock()
		return nil
	case StateExhausted:
		m.exhausted = make(chan struct{})
	}

	m.attempts = 0
	m.logger.Info().Str("url", m.url).Msg("Connecting")
	m.dialLocked()
	m.unlockAndFlush()
	return nil
}

// Disconnect stops the channel. Heartbeat and backoff timers are cancelled
// before it returns and no reconnect follows. Queued payloads are kept for
// the next Connect. It does not wait for the peer to acknowledge the close.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen, StateReconnecting:
		m.logger.Info().
			Stringer("state", m.state).
			Int("queued", m.queue.Len()).
			Msg("Disconnecting")
		m.teardownLocked()
		m.setStateLocked(StateClosed)
	}
	m.unlockAndFlush()
}

// Close disconnects and releases the Manager. Queued payloads are
// discarded and every later call returns ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}

	switch m.state {
	case StateConnecting, StateOpen, StateReconnecting:
		m.teardownLocked()
		m.setStateLocked(StateClosed)
	}
	m.disposed = true
	if n := m.queue.Reset(); n > 0 {
		m.dropped.Add(uint64(n))
		m.logger.Warn().Int("discarded", n).Msg("Closed with queued payloads")
	}
	metrics.SetQueueDepth(m.name, 0)
	m.subs = make(map[string][]*Subscription)
	close(m.done)
	m.unlockAndFlush()

	// Observers still see the final transition.
	m.mu.Lock()
	m.observers = nil
	m.mu.Unlock()
	return nil
}

// Exhausted returns a channel closed when the retry budget is spent. A
// Connect after exhaustion arms a fresh channel.
func (m *Manager) Exhausted() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exhausted
}

// Wait blocks until the channel is exhausted, the Manager is closed, or
// ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	exhausted, done := m.exhausted, m.done
	m.mu.Unlock()

	select {
	case <-exhausted:
		return ErrExhausted
	case <-done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send encodes payload and transmits it, or queues it until the channel is
// Open. It never blocks on the network and never fails because the channel
// is down.
func (m *Manager) Send(payload any) error {
	frame, err := encodePayload(payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrClosed
	}

	if m.opts.QueueLimit > 0 && m.queue.Len() >= m.opts.QueueLimit {
		m.dropped.Add(1)
		metrics.RecordQueueOverflow(m.name, string(m.opts.Overflow))

		if m.opts.Overflow == OverflowReject {
			m.mu.Unlock()
			return ErrQueueFull
		}

		m.queue.PopFront()
		m.logger.Warn().Int("limit", m.opts.QueueLimit).Msg("Outbound queue full, dropped oldest payload")
		m.emitLocked(Event{
			Topic:   TopicError,
			Err:     &Failure{Kind: KindOverflow, Err: ErrQueueFull},
			Attempt: m.attempts,
		})
	}

	m.queue.PushBack(frame)
	metrics.SetQueueDepth(m.name, m.queue.Len())
	if m.state == StateOpen {
		m.signalWriterLocked()
	}
	m.unlockAndFlush()
	return nil
}

// setStateLocked records a transition for observers.
func (m *Manager) setStateLocked(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	metrics.SetChannelState(m.name, int(to))
	m.pending = append(m.pending, notice{change: &stateChange{from: from, to: to}})
	m.logger.Debug().Stringer("from", from).Stringer("to", to).Msg("State transition")
}

// dialLocked starts a new attempt under a fresh generation.
func (m *Manager) dialLocked() {
	m.gen++
	gen := m.gen

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.connID = logging.GenerateID()
	m.setStateLocked(StateConnecting)

	go m.dial(ctx, gen, m.connID)
}

func (m *Manager) dial(ctx context.Context, gen uint64, connID string) {
	conn, err := m.dialer.Dial(ctx, m.url)
	metrics.RecordConnectAttempt(m.name, err)

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			closeConn(conn, m.logger)
		}
		return
	}

	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("conn_id", connID).
			Int("attempt", m.attempts+1).
			Msg("Connect attempt failed")
		m.teardownLocked()
		m.recoverLocked(TopicError, err)
		m.unlockAndFlush()
		return
	}

	m.openLocked(ctx, gen, conn)
	m.unlockAndFlush()
}

// openLocked installs a live handle: reset the counter, announce, start
// the heartbeat and the reader and writer.
func (m *Manager) openLocked(ctx context.Context, gen uint64, conn transport.Conn) {
	m.conn = conn
	m.attempts = 0
	m.connectedAt = m.clock.Now()
	m.pingDue = false
	m.wake = make(chan struct{}, 1)
	m.connects.Add(1)

	m.setStateLocked(StateOpen)
	m.logger.Info().
		Str("conn_id", m.connID).
		Int("queued", m.queue.Len()).
		Msg("Connected")
	m.emitLocked(Event{Topic: TopicConnected, ConnID: m.connID})

	m.scheduleHeartbeatLocked(gen)
	go m.readLoop(ctx, gen, conn)
	go m.writeLoop(ctx, gen, conn, m.wake)
}

// teardownLocked releases the current attempt's resources and invalidates
// its generation.
func (m *Manager) teardownLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	stopTimer(&m.backoff)
	stopTimer(&m.heartbeat)
	stopTimer(&m.pongTimer)
	m.pingDue = false
	m.wake = nil
	m.connectedAt = time.Time{}

	if m.conn != nil {
		conn := m.conn
		m.conn = nil
		go closeConn(conn, m.logger)
	}
	m.gen++
}

// recoverLocked handles a failed or terminated attempt: count it, emit the
// failure on topic, then either arm the backoff timer or give up.
func (m *Manager) recoverLocked(topic string, cause error) {
	m.attempts++
	attempt := m.attempts
	failure := &Failure{Kind: KindTransport, Attempt: attempt, Err: cause}

	if attempt >= m.opts.MaxAttempts {
		m.emitLocked(Event{Topic: topic, Err: failure, Attempt: attempt, ConnID: m.connID})
		m.setStateLocked(StateReconnecting)
		m.exhaustLocked(cause)
		return
	}

	delay := withJitter(BackoffDelay(m.opts.ReconnectDelay, attempt), m.opts.Jitter, m.rand())
	m.emitLocked(Event{Topic: topic, Err: failure, Attempt: attempt, Delay: delay, ConnID: m.connID})
	m.setStateLocked(StateReconnecting)

	gen := m.gen
	m.backoff = m.clock.AfterFunc(delay, func() { m.onBackoff(gen) })
	metrics.RecordReconnectScheduled(m.name, delay)
	m.logger.Info().
		Int("attempt", attempt).
		Int("max_attempts", m.opts.MaxAttempts).
		Dur("delay", delay).
		Msg("Reconnect scheduled")
}

func (m *Manager) exhaustLocked(cause error) {
	m.setStateLocked(StateExhausted)
	close(m.exhausted)
	metrics.RecordExhausted(m.name)

	err := fmt.Errorf("%w after %d attempts: %w", ErrExhausted, m.attempts, cause)
	m.logger.Error().Err(err).Msg("Giving up reconnecting")
	m.emitLocked(Event{
		Topic:   TopicReconnectFailed,
		Err:     &Failure{Kind: KindExhaustion, Attempt: m.attempts, Err: err},
		Attempt: m.attempts,
		ConnID:  m.connID,
	})
}

func (m *Manager) onBackoff(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateReconnecting || m.disposed {
		m.mu.Unlock()
		return
	}
	m.backoff = nil
	m.dialLocked()
	m.unlockAndFlush()
}

// connectionLost moves an Open channel to recovery. Reports from an older
// generation, or after the channel left Open, are ignored.
func (m *Manager) connectionLost(gen uint64, cause error, reason string) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	m.connectionLostLocked(cause, reason)
	m.unlockAndFlush()
}

func (m *Manager) connectionLostLocked(cause error, reason string) {
	m.logger.Warn().
		Err(cause).
		Str("conn_id", m.connID).
		Str("reason", reason).
		Msg("Connection lost")
	m.disconnects.Add(1)
	metrics.RecordDisconnect(m.name, reason)

	m.teardownLocked()
	m.recoverLocked(TopicDisconnected, cause)
}

func (m *Manager) readLoop(ctx context.Context, gen uint64, conn transport.Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			m.connectionLost(gen, err, "transport")
			return
		}
		if !m.handleFrame(gen, data) {
			return
		}
	}
}

// handleFrame decodes and dispatches one inbound frame. It reports false
// once gen is stale.
func (m *Manager) handleFrame(gen uint64, data []byte) bool {
	m.mu.Lock()
	if gen != m.gen || m.state != StateOpen {
		m.mu.Unlock()
		return false
	}

	// Any inbound traffic proves the peer is alive.
	stopTimer(&m.pongTimer)

	msg, err := decodeFrame(data)
	if err != nil {
		metrics.RecordMalformedFrame(m.name)
		m.logger.Warn().Err(err).Int("size", len(data)).Msg("Dropping malformed frame")
		m.emitLocked(Event{
			Topic:  TopicError,
			Err:    &Failure{Kind: KindProtocol, Err: err},
			ConnID: m.connID,
		})
	} else {
		m.received.Add(1)
		metrics.RecordMessageReceived(m.name)
		m.emitLocked(Event{Topic: TopicMessage, Message: msg, ConnID: m.connID})
	}

	m.unlockAndFlush()
	return true
}

// writeLoop hands queued frames to the transport one at a time while gen
// is current.
func (m *Manager) writeLoop(ctx context.Context, gen uint64, conn transport.Conn, wake <-chan struct{}) {
	for {
		m.mu.Lock()
		if gen != m.gen || m.state != StateOpen {
			m.mu.Unlock()
			return
		}
		frame, heartbeat := m.nextFrameLocked()
		m.mu.Unlock()

		if frame == nil {
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := conn.Write(ctx, frame); err != nil {
			m.writeFailed(gen, frame, heartbeat, err)
			return
		}

		if heartbeat {
			m.heartbeats.Add(1)
		} else {
			m.sent.Add(1)
		}
		metrics.RecordMessageSent(m.name, heartbeat)
	}
}

// nextFrameLocked returns a due heartbeat first, then the queue head.
func (m *Manager) nextFrameLocked() ([]byte, bool) {
	if m.pingDue {
		m.pingDue = false
		return pingFrame, true
	}
	frame, ok := m.queue.PopFront()
	if !ok {
		return nil, false
	}
	metrics.SetQueueDepth(m.name, m.queue.Len())
	return frame, false
}

// writeFailed returns an undelivered payload to the head of the queue and
// treats the handle as lost.
func (m *Manager) writeFailed(gen uint64, frame []byte, heartbeat bool, err error) {
	m.mu.Lock()
	current := gen == m.gen && m.state == StateOpen

	// A newer handle may already be draining; requeueing then would
	// reorder its stream, so the frame is dropped and reported.
	switch {
	case heartbeat || m.disposed:
	case current || m.state != StateOpen:
		m.queue.PushFront(frame)
		metrics.SetQueueDepth(m.name, m.queue.Len())
	default:
		m.dropped.Add(1)
		metrics.RecordQueueOverflow(m.name, "superseded")
		m.logger.Warn().Err(err).Msg("Dropped payload whose write failed on a superseded handle")
		m.emitLocked(Event{
			Topic:   TopicError,
			Err:     &Failure{Kind: KindTransport, Err: fmt.Errorf("%w: %w", ErrSuperseded, err)},
			Attempt: m.attempts,
			ConnID:  m.connID,
		})
	}

	if !current {
		m.unlockAndFlush()
		return
	}
	m.connectionLostLocked(fmt.Errorf("write: %w", err), "write")
	m.unlockAndFlush()
}

func (m *Manager) signalWriterLocked() {
	if m.wake == nil {
		return
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func closeConn(conn transport.Conn, logger zerolog.Logger) {
	if err := conn.Close(); err != nil && !errors.Is(err, transport.ErrClosed) {
		logger.Debug().Err(err).Msg("Error closing transport handle")
	}
}
