// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/tether/internal/logging"
	"github.com/tomtom215/tether/internal/validation"
)

// Validate checks field rules, then the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateConnection(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateConnection() error {
	if c.Connection.PongTimeout > 0 && c.Connection.PongTimeout >= c.Connection.HeartbeatInterval {
		return fmt.Errorf("connection.pong_timeout (%s) must be shorter than connection.heartbeat_interval (%s)",
			c.Connection.PongTimeout, c.Connection.HeartbeatInterval)
	}
	return nil
}

func (c *Config) validateTransport() error {
	if _, err := c.Transport.HeaderMap(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBridge() error {
	if !c.Bridge.Enabled {
		return nil
	}
	if !c.Bridge.Embedded && c.Bridge.URL == "" {
		return fmt.Errorf("bridge.url is required when the bridge is enabled without an embedded server")
	}
	prefix := c.Bridge.SubjectPrefix
	if prefix == "" {
		return fmt.Errorf("bridge.subject_prefix is required when the bridge is enabled")
	}
	if strings.ContainsAny(prefix, " \t*>") || strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("bridge.subject_prefix %q is not a valid NATS subject prefix", prefix)
	}
	if c.Bridge.ForwardRate > 0 && c.Bridge.ForwardBurst < 1 {
		return fmt.Errorf("bridge.forward_burst must be at least 1 when bridge.forward_rate is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	return nil
}

// HeaderMap parses the "Name: value" handshake headers.
func (t TransportConfig) HeaderMap() (http.Header, error) {
	if len(t.Headers) == 0 {
		return nil, nil
	}
	h := make(http.Header, len(t.Headers))
	for _, raw := range t.Headers {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("transport.headers entry %q must look like \"Name: value\"", raw)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}
