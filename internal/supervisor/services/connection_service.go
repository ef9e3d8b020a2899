// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/tether/internal/connection"
	"github.com/tomtom215/tether/internal/logging"
)

// Channel is the part of a connection.Manager the service drives.
type Channel interface {
	Name() string
	Connect() error
	Disconnect()
	Wait(ctx context.Context) error
}

// ConnectionService keeps a channel connected while the tree runs.
type ConnectionService struct {
	channel             Channel
	restartOnExhaustion bool
	name                string
}

// NewConnectionService wraps channel. With restartOnExhaustion, an
// exhausted channel fails the service so suture reconnects it with a fresh
// retry budget; otherwise it stays exhausted until shutdown.
func NewConnectionService(channel Channel, restartOnExhaustion bool) *ConnectionService {
	return &ConnectionService{
		channel:             channel,
		restartOnExhaustion: restartOnExhaustion,
		name:                "connection:" + channel.Name(),
	}
}

// Serve connects and blocks until ctx ends or the channel gives up.
func (s *ConnectionService) Serve(ctx context.Context) error {
	if err := s.channel.Connect(); err != nil {
		if errors.Is(err, connection.ErrClosed) {
			return suture.ErrDoNotRestart
		}
		return fmt.Errorf("connect %s: %w", s.channel.Name(), err)
	}

	err := s.channel.Wait(ctx)
	switch {
	case errors.Is(err, connection.ErrExhausted):
		if s.restartOnExhaustion {
			return fmt.Errorf("channel %s: %w", s.channel.Name(), err)
		}
		logging.Warn().
			Str("channel", s.channel.Name()).
			Msg("Channel exhausted its retry budget and will stay down")
		<-ctx.Done()
		return ctx.Err()

	case errors.Is(err, connection.ErrClosed):
		return suture.ErrDoNotRestart

	default:
		s.channel.Disconnect()
		return err
	}
}

func (s *ConnectionService) String() string {
	return s.name
}
