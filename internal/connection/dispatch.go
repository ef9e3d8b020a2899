// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"fmt"

	"github.com/tomtom215/tether/internal/metrics"
)

// notice is one queued unit of handler work: an event or a state change.
type notice struct {
	event  Event
	change *stateChange
}

type stateChange struct {
	from, to State
}

// On registers handler for topic and returns a handle for Off. Handlers of
// the same topic run in registration order. Use TopicMessage to receive
// every inbound frame.
func (m *Manager) On(topic string, handler Handler) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	sub := &Subscription{id: m.nextSubID, topic: topic, handler: handler}
	if m.disposed || handler == nil {
		return sub
	}

	// Copy on write so snapshots taken by an in-flight delivery stay valid.
	current := m.subs[topic]
	next := make([]*Subscription, len(current), len(current)+1)
	copy(next, current)
	m.subs[topic] = append(next, sub)
	return sub
}

// Off removes a subscription. It is a no-op for nil or already removed
// subscriptions.
func (m *Manager) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.subs[sub.topic]
	for i, s := range current {
		if s.id != sub.id {
			continue
		}
		next := make([]*Subscription, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(m.subs, sub.topic)
		} else {
			m.subs[sub.topic] = next
		}
		return
	}
}

// OnStateChange registers an observer for every state transition.
func (m *Manager) OnStateChange(fn StateObserver) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return
	}
	m.observers = append(m.observers[:len(m.observers):len(m.observers)], fn)
}

// emitLocked queues an event for delivery once the lock is released.
func (m *Manager) emitLocked(ev Event) {
	m.pending = append(m.pending, notice{event: ev})
}

// unlockAndFlush releases the lock and delivers queued notices. Only one
// goroutine delivers at a time; others leave their notices for it, which
// keeps delivery in emission order and lets handlers re-enter the Manager.
func (m *Manager) unlockAndFlush() {
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true

	for len(m.pending) > 0 {
		n := m.pending[0]
		m.pending[0] = notice{}
		m.pending = m.pending[1:]

		if n.change != nil {
			observers := m.observers
			m.mu.Unlock()
			for _, fn := range observers {
				m.observe(fn, *n.change)
			}
		} else {
			primary, typed := m.targetsLocked(n.event)
			m.mu.Unlock()
			m.deliver(n.event, primary, typed)
		}
		m.mu.Lock()
	}

	m.pending = nil
	m.draining = false
	m.mu.Unlock()
}

// targetsLocked snapshots the subscribers for an event. Inbound frames go
// to the wildcard topic and to their own type; lifecycle events go to
// their topic only.
func (m *Manager) targetsLocked(ev Event) (primary, typed []*Subscription) {
	if ev.Message == nil {
		return m.subs[ev.Topic], nil
	}
	primary = m.subs[TopicMessage]
	if t := ev.Message.Type; t != "" && t != TopicMessage {
		typed = m.subs[t]
	}
	return primary, typed
}

func (m *Manager) deliver(ev Event, primary, typed []*Subscription) {
	if ev.Message == nil {
		for _, sub := range primary {
			m.invoke(sub, ev)
		}
		return
	}

	ev.Topic = TopicMessage
	for _, sub := range primary {
		m.invoke(sub, ev)
	}
	if len(typed) > 0 {
		ev.Topic = ev.Message.Type
		for _, sub := range typed {
			m.invoke(sub, ev)
		}
	}
}

// invoke runs one handler, isolating panics.
func (m *Manager) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSubscriberPanic(m.name, ev.Topic)
			m.logger.Error().
				Err(&Failure{Kind: KindSubscriber, Err: fmt.Errorf("panic: %v", r)}).
				Str("topic", ev.Topic).
				Msg("Subscriber panicked")
		}
	}()
	sub.handler(ev)
}

func (m *Manager) observe(fn StateObserver, c stateChange) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Stringer("from", c.from).
				Stringer("to", c.to).
				Msg("State observer panicked")
		}
	}()
	fn(c.from, c.to)
}
