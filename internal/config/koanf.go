// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"tether.yaml",
	"tether.yml",
	"/etc/tether/config.yaml",
	"/etc/tether/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the values applied before the file and environment.
func defaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Name:              "default",
			MaxAttempts:       5,
			ReconnectDelay:    time.Second,
			HeartbeatInterval: 30 * time.Second,
			PongTimeout:       0, // send-only heartbeat
			Jitter:            0,
		},
		Transport: TransportConfig{
			Driver:           "gorilla",
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     10 * time.Second,
			ReadLimit:        1 << 20,
		},
		Queue: QueueConfig{
			Limit:    0, // unbounded
			Overflow: "reject",
		},
		Bridge: BridgeConfig{
			Enabled:                 false,
			URL:                     "nats://127.0.0.1:4222",
			SubjectPrefix:           "tether",
			MaxReconnects:           10,
			ReconnectWait:           time.Second,
			ForwardRate:             100,
			ForwardBurst:            10,
			BreakerMaxRequests:      1,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerFailureRatio:     0.6,
			BreakerMinRequests:      10,
			EmbeddedHost:            "127.0.0.1",
			EmbeddedPort:            4222,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            9464,
			RateLimit:       100,
			RateWindow:      time.Minute,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration with koanf in three layers, later ones winning:
//
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables listed in envMappings
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"transport.headers",
}

// processSliceFields splits comma-separated strings for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"tether_name":                  "connection.name",
	"tether_url":                   "connection.url",
	"tether_max_attempts":          "connection.max_attempts",
	"tether_reconnect_delay":       "connection.reconnect_delay",
	"tether_heartbeat_interval":    "connection.heartbeat_interval",
	"tether_pong_timeout":          "connection.pong_timeout",
	"tether_jitter":                "connection.jitter",
	"tether_restart_on_exhaustion": "connection.restart_on_exhaustion",

	"tether_transport_driver":  "transport.driver",
	"tether_handshake_timeout": "transport.handshake_timeout",
	"tether_write_timeout":     "transport.write_timeout",
	"tether_read_limit":        "transport.read_limit",
	"tether_transport_headers": "transport.headers",

	"tether_queue_limit":    "queue.limit",
	"tether_queue_overflow": "queue.overflow",

	"nats_enabled":              "bridge.enabled",
	"nats_url":                  "bridge.url",
	"nats_subject_prefix":       "bridge.subject_prefix",
	"nats_max_reconnects":       "bridge.max_reconnects",
	"nats_reconnect_wait":       "bridge.reconnect_wait",
	"nats_forward_rate":         "bridge.forward_rate",
	"nats_forward_burst":        "bridge.forward_burst",
	"nats_embedded":             "bridge.embedded",
	"nats_embedded_host":        "bridge.embedded_host",
	"nats_embedded_port":        "bridge.embedded_port",
	"nats_breaker_timeout":      "bridge.breaker_timeout",
	"nats_breaker_max_failures": "bridge.breaker_failure_threshold",

	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_rate_limit":       "server.rate_limit",
	"http_rate_window":      "server.rate_window",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Returning "" makes koanf skip the variable.
//
//   - TETHER_URL -> connection.url
//   - NATS_URL -> bridge.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
