// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package config

import "time"

// Config holds the daemon configuration.
type Config struct {
	Connection ConnectionConfig `koanf:"connection"`
	Transport  TransportConfig  `koanf:"transport"`
	Queue      QueueConfig      `koanf:"queue"`
	Bridge     BridgeConfig     `koanf:"bridge"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ConnectionConfig configures the channel and its recovery policy.
type ConnectionConfig struct {
	Name              string        `koanf:"name" validate:"required"`
	URL               string        `koanf:"url" validate:"required,wsurl"`
	MaxAttempts       int           `koanf:"max_attempts" validate:"gt=0"`
	ReconnectDelay    time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"gt=0"`

	// PongTimeout of zero keeps the heartbeat send-only.
	PongTimeout time.Duration `koanf:"pong_timeout" validate:"gte=0"`

	// Jitter is the fraction of each backoff delay added at random.
	Jitter float64 `koanf:"jitter" validate:"gte=0,lte=1"`

	// RestartOnExhaustion lets the supervisor start a fresh retry budget
	// after the channel gives up.
	RestartOnExhaustion bool `koanf:"restart_on_exhaustion"`
}

// TransportConfig selects and tunes the WebSocket driver.
type TransportConfig struct {
	Driver           string        `koanf:"driver" validate:"oneof=gorilla coder"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	WriteTimeout     time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ReadLimit        int64         `koanf:"read_limit" validate:"gt=0"`

	// Headers are "Name: value" pairs sent with the handshake.
	Headers []string `koanf:"headers"`
}

// QueueConfig bounds the outbound queue.
type QueueConfig struct {
	// Limit of zero leaves the queue unbounded.
	Limit    int    `koanf:"limit" validate:"gte=0"`
	Overflow string `koanf:"overflow" validate:"oneof=reject drop_oldest"`
}

// BridgeConfig configures the NATS bridge.
type BridgeConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url" validate:"omitempty,natsurl"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`

	// ForwardRate limits broker messages fed into the channel, per second.
	ForwardRate  float64 `koanf:"forward_rate" validate:"gte=0"`
	ForwardBurst int     `koanf:"forward_burst" validate:"gte=0"`

	// Circuit breaker around publishes.
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval" validate:"gte=0"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerFailureRatio     float64       `koanf:"breaker_failure_ratio" validate:"gte=0,lte=1"`
	BreakerMinRequests      uint32        `koanf:"breaker_min_requests"`

	// Embedded runs an in-process NATS server instead of dialing URL.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port" validate:"gte=-1,lte=65535"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow      time.Duration `koanf:"rate_window" validate:"gte=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// SupervisorConfig tunes the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
