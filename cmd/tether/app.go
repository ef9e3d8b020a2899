// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/tether/internal/api"
	"github.com/tomtom215/tether/internal/bridge"
	"github.com/tomtom215/tether/internal/config"
	"github.com/tomtom215/tether/internal/connection"
	"github.com/tomtom215/tether/internal/logging"
	"github.com/tomtom215/tether/internal/supervisor"
	"github.com/tomtom215/tether/internal/supervisor/services"
	"github.com/tomtom215/tether/internal/transport"
)

// run wires every component and serves the supervisor tree until ctx ends.
func run(ctx context.Context, cfg *config.Config) error {
	manager, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing channel")
		}
	}()

	logging.Info().
		Str("channel", manager.Name()).
		Str("url", manager.URL()).
		Str("driver", cfg.Transport.Driver).
		Int("max_attempts", cfg.Connection.MaxAttempts).
		Msg("Configuration loaded")

	tree := supervisor.NewSupervisorTree(
		slog.New(logging.NewSlogHandlerWithLogger(logging.WithComponent("supervisor"))),
		treeConfig(cfg),
	)
	tree.AddMessagingService(services.NewConnectionService(manager, cfg.Connection.RestartOnExhaustion))

	var breaker api.BreakerSource
	if cfg.Bridge.Enabled {
		bcfg := bridgeConfig(cfg)

		if cfg.Bridge.Embedded {
			srv, err := bridge.NewEmbeddedServer(bridge.ServerConfig{
				Host: cfg.Bridge.EmbeddedHost,
				Port: cfg.Bridge.EmbeddedPort,
			})
			if err != nil {
				return fmt.Errorf("start embedded NATS: %w", err)
			}
			defer shutdownEmbedded(srv, cfg.Supervisor.ShutdownTimeout)
			bcfg.URL = srv.ClientURL()
			logging.Info().Str("url", bcfg.URL).Msg("Embedded NATS server started")
		}

		b, err := bridge.New(bcfg, manager)
		if err != nil {
			return fmt.Errorf("create bridge: %w", err)
		}
		tree.AddMessagingService(services.NewBridgeService(b))
		breaker = b
	}

	if cfg.Server.Enabled {
		router := api.NewRouter(api.RouterConfig{
			RateLimit:  cfg.Server.RateLimit,
			RateWindow: cfg.Server.RateWindow,
		}, api.NewHandler(manager, breaker))

		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		server := api.NewServer(addr, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", addr).Msg("Ops server configured")
	}

	logging.Info().Msg("Starting supervisor tree")
	err = <-tree.ServeBackground(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// newManager builds the transport and channel from cfg.
func newManager(cfg *config.Config) (*connection.Manager, error) {
	header, err := cfg.Transport.HeaderMap()
	if err != nil {
		return nil, err
	}

	dialer, err := transport.New(cfg.Transport.Driver, transport.Options{
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		WriteTimeout:     cfg.Transport.WriteTimeout,
		ReadLimit:        cfg.Transport.ReadLimit,
		Header:           header,
	})
	if err != nil {
		return nil, err
	}

	manager, err := connection.New(cfg.Connection.URL, dialer, connectionOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return manager, nil
}

func connectionOptions(cfg *config.Config) connection.Options {
	return connection.Options{
		Name:              cfg.Connection.Name,
		MaxAttempts:       cfg.Connection.MaxAttempts,
		ReconnectDelay:    cfg.Connection.ReconnectDelay,
		HeartbeatInterval: cfg.Connection.HeartbeatInterval,
		PongTimeout:       cfg.Connection.PongTimeout,
		Jitter:            cfg.Connection.Jitter,
		QueueLimit:        cfg.Queue.Limit,
		Overflow:          connection.OverflowPolicy(cfg.Queue.Overflow),
	}
}

func bridgeConfig(cfg *config.Config) bridge.Config {
	b := cfg.Bridge
	return bridge.Config{
		URL:           b.URL,
		SubjectPrefix: b.SubjectPrefix,
		MaxReconnects: b.MaxReconnects,
		ReconnectWait: b.ReconnectWait,
		ForwardRate:   b.ForwardRate,
		ForwardBurst:  b.ForwardBurst,
		Breaker: bridge.BreakerConfig{
			Name:             "nats-publish",
			MaxRequests:      b.BreakerMaxRequests,
			Interval:         b.BreakerInterval,
			Timeout:          b.BreakerTimeout,
			FailureThreshold: b.BreakerFailureThreshold,
			FailureRatio:     b.BreakerFailureRatio,
			MinRequests:      b.BreakerMinRequests,
		},
	}
}

func treeConfig(cfg *config.Config) supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	}
}

func shutdownEmbedded(srv *bridge.EmbeddedServer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
	}
}
