// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"errors"
	"fmt"
	"time"
)

// State is the lifecycle state of a Manager.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateReconnecting
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Topics emitted by the Manager.
const (
	TopicMessage         = "message"
	TopicConnected       = "connected"
	TopicDisconnected    = "disconnected"
	TopicError           = "error"
	TopicReconnectFailed = "reconnect_failed"
)

// Heartbeat frame types.
const (
	TypePing = "ping"
	TypePong = "pong"
)

var (
	// ErrClosed is returned after the Manager has been disposed with Close.
	ErrClosed = errors.New("connection: manager closed")

	// ErrQueueFull is returned by Send when the queue bound is reached and
	// the overflow policy is OverflowReject.
	ErrQueueFull = errors.New("connection: outbound queue full")

	// ErrEncode is returned by Send when a payload cannot be serialized.
	ErrEncode = errors.New("connection: encode payload")

	// ErrExhausted is the cause carried by reconnect_failed events and
	// returned by Wait.
	ErrExhausted = errors.New("connection: reconnect attempts exhausted")

	// ErrPongTimeout is the cause of a disconnect forced by a missing reply
	// to a heartbeat.
	ErrPongTimeout = errors.New("connection: pong timeout")

	// ErrSuperseded wraps a write failure reported by a handle that a newer
	// open handle has already replaced. The payload is dropped.
	ErrSuperseded = errors.New("connection: write superseded by a newer handle")

	// ErrMalformedFrame is wrapped by protocol failures.
	ErrMalformedFrame = errors.New("connection: malformed frame")

	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("connection: invalid options")
)

// FailureKind classifies a Failure.
type FailureKind string

const (
	// KindTransport is a dial, read or write failure. It triggers backoff.
	KindTransport FailureKind = "transport"
	// KindProtocol is an undecodable inbound frame. The frame is dropped.
	KindProtocol FailureKind = "protocol"
	// KindExhaustion means the retry budget is spent.
	KindExhaustion FailureKind = "exhaustion"
	// KindSubscriber is a recovered handler panic.
	KindSubscriber FailureKind = "subscriber"
	// KindOverflow is a payload dropped by the queue bound.
	KindOverflow FailureKind = "overflow"
)

// Failure is the error carried by "error", "disconnected" and
// "reconnect_failed" events.
type Failure struct {
	Kind    FailureKind
	Attempt int
	Err     error
}

func (f *Failure) Error() string {
	if f.Attempt > 0 {
		return fmt.Sprintf("%s failure (attempt %d): %v", f.Kind, f.Attempt, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Event is delivered to handlers.
type Event struct {
	// Topic is the topic the handler was registered for.
	Topic string

	// Message is set for inbound frames.
	Message *Message

	// Err is set for error, disconnected and reconnect_failed events.
	Err error

	// Attempt is the reconnect counter when the event was emitted.
	Attempt int

	// Delay is the backoff chosen for the next attempt, if one was armed.
	Delay time.Duration

	// ConnID identifies the transport handle the event belongs to.
	ConnID string
}

// Handler receives events. Handlers run one at a time and may call back
// into the Manager.
type Handler func(Event)

// Subscription is the handle returned by On.
type Subscription struct {
	id      uint64
	topic   string
	handler Handler
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// StateObserver is notified of every state transition, in order.
type StateObserver func(from, to State)

// Stats is a point-in-time snapshot of a Manager.
type Stats struct {
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	State            State      `json:"state"`
	Attempts         int        `json:"attempts"`
	QueueDepth       int        `json:"queue_depth"`
	ConnID           string     `json:"conn_id,omitempty"`
	ConnectedSince   *time.Time `json:"connected_since,omitempty"`
	Connects         uint64     `json:"connects"`
	Disconnects      uint64     `json:"disconnects"`
	MessagesSent     uint64     `json:"messages_sent"`
	MessagesReceived uint64     `json:"messages_received"`
	HeartbeatsSent   uint64     `json:"heartbeats_sent"`
	Dropped          uint64     `json:"dropped"`
}
