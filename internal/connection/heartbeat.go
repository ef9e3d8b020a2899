// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

// scheduleHeartbeatLocked arms the next ping for generation gen.
func (m *Manager) scheduleHeartbeatLocked(gen uint64) {
	m.heartbeat = m.clock.AfterFunc(m.opts.HeartbeatInterval, func() { m.onHeartbeat(gen) })
}

// onHeartbeat queues a ping ahead of pending payloads and, when a pong
// timeout is configured, arms it unless one is already running.
func (m *Manager) onHeartbeat(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateOpen {
		return
	}

	m.pingDue = true
	m.signalWriterLocked()

	if m.opts.PongTimeout > 0 && m.pongTimer == nil {
		m.pongTimer = m.clock.AfterFunc(m.opts.PongTimeout, func() {
			m.connectionLost(gen, ErrPongTimeout, "pong_timeout")
		})
	}

	m.scheduleHeartbeatLocked(gen)
}
