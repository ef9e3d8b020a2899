// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType string
		wantErr  bool
	}{
		{name: "typed object", frame: `{"type":"trade","px":1}`, wantType: "trade"},
		{name: "untyped object", frame: `{"px":1}`, wantType: ""},
		{name: "non-string type", frame: `{"type":7}`, wantType: ""},
		{name: "surrounding whitespace", frame: "  {\"type\":\"pong\"}\n", wantType: "pong"},
		{name: "array", frame: `[{"type":"x"}]`, wantErr: true},
		{name: "scalar", frame: `"ping"`, wantErr: true},
		{name: "null", frame: `null`, wantErr: true},
		{name: "truncated", frame: `{"type":"x"`, wantErr: true},
		{name: "empty", frame: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeFrame([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("decodeFrame(%q) error = %v, want ErrMalformedFrame", tt.frame, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFrame(%q) error = %v", tt.frame, err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", msg.Type, tt.wantType)
			}
		})
	}
}

func TestEncodePayload(t *testing.T) {
	raw := []byte(`{"type":"x"}`)
	got, err := encodePayload(raw)
	if err != nil {
		t.Fatalf("encodePayload([]byte) error = %v", err)
	}
	raw[0] = '['
	if string(got) != `{"type":"x"}` {
		t.Errorf("encodePayload must copy caller bytes, got %s", got)
	}

	got, err = encodePayload(json.RawMessage(`{"a":1}`))
	if err != nil || string(got) != `{"a":1}` {
		t.Errorf("encodePayload(RawMessage) = %s, %v", got, err)
	}

	got, err = encodePayload(struct {
		Type string `json:"type"`
		N    int    `json:"n"`
	}{"order", 3})
	if err != nil || string(got) != `{"type":"order","n":3}` {
		t.Errorf("encodePayload(struct) = %s, %v", got, err)
	}

	if _, err := encodePayload(make(chan int)); !errors.Is(err, ErrEncode) {
		t.Errorf("encodePayload(chan) error = %v, want ErrEncode", err)
	}
}

func TestPingFrame(t *testing.T) {
	msg, err := decodeFrame(pingFrame)
	if err != nil {
		t.Fatalf("ping frame does not decode: %v", err)
	}
	if msg.Type != TypePing {
		t.Errorf("ping frame type = %q", msg.Type)
	}
}
