// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package validation

import (
	"errors"
	"strings"
	"testing"
)

type endpoint struct {
	URL      string  `validate:"required,wsurl"`
	Broker   string  `validate:"omitempty,natsurl"`
	Attempts int     `validate:"gt=0"`
	Jitter   float64 `validate:"gte=0,lte=1"`
	Driver   string  `validate:"oneof=gorilla coder"`
}

func TestValidateStruct(t *testing.T) {
	valid := endpoint{URL: "wss://feed.example.com/ws", Attempts: 5, Driver: "gorilla"}

	tests := []struct {
		name    string
		mutate  func(*endpoint)
		wantTag string
	}{
		{name: "valid", mutate: func(*endpoint) {}},
		{name: "missing url", mutate: func(e *endpoint) { e.URL = "" }, wantTag: "required"},
		{name: "http url", mutate: func(e *endpoint) { e.URL = "http://feed" }, wantTag: "wsurl"},
		{name: "relative url", mutate: func(e *endpoint) { e.URL = "ws:///path" }, wantTag: "wsurl"},
		{name: "bad broker", mutate: func(e *endpoint) { e.Broker = "amqp://x" }, wantTag: "natsurl"},
		{name: "good broker", mutate: func(e *endpoint) { e.Broker = "nats://127.0.0.1:4222" }},
		{name: "zero attempts", mutate: func(e *endpoint) { e.Attempts = 0 }, wantTag: "gt"},
		{name: "jitter too high", mutate: func(e *endpoint) { e.Jitter = 2 }, wantTag: "lte"},
		{name: "unknown driver", mutate: func(e *endpoint) { e.Driver = "netconn" }, wantTag: "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)

			err := ValidateStruct(&e)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}

			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("ValidateStruct() error = %v, want Errors", err)
			}
			if len(verrs) != 1 || verrs[0].Tag != tt.wantTag {
				t.Errorf("errors = %+v, want one %q", verrs, tt.wantTag)
			}
		})
	}
}

func TestErrors_Message(t *testing.T) {
	err := ValidateStruct(&endpoint{URL: "http://x", Attempts: 0, Driver: "gorilla"})
	if err == nil {
		t.Fatal("expected errors")
	}

	msg := err.Error()
	for _, want := range []string{"URL must be a ws:// or wss:// URL", "Attempts must be greater than 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestFieldPath(t *testing.T) {
	if got := fieldPath("Config.connection.url"); got != "connection.url" {
		t.Errorf("fieldPath() = %q", got)
	}
	if got := fieldPath("url"); got != "url" {
		t.Errorf("fieldPath() = %q", got)
	}
}
