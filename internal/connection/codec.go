// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Message is a decoded inbound frame.
type Message struct {
	// Type is the frame's "type" field, or "" when absent or not a string.
	Type string

	// Raw is the frame exactly as received.
	Raw json.RawMessage
}

// Decode unmarshals the frame into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Raw, v)
}

// envelope is the minimum every frame is expected to carry.
type envelope struct {
	Type json.RawMessage `json:"type"`
}

var pingFrame = []byte(`{"type":"ping"}`)

// encodePayload serializes an outbound payload. []byte and json.RawMessage
// are sent as-is.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil payload", ErrEncode)
	case json.RawMessage:
		return append([]byte(nil), p...), nil
	case []byte:
		return append([]byte(nil), p...), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

// decodeFrame parses an inbound frame. Anything other than a JSON object
// is malformed.
func decodeFrame(data []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedFrame)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	msg := &Message{Raw: append(json.RawMessage(nil), trimmed...)}
	if len(env.Type) > 0 {
		var typ string
		if err := json.Unmarshal(env.Type, &typ); err == nil {
			msg.Type = typ
		}
	}
	return msg, nil
}
