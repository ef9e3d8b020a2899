// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package services

import (
	"context"
	"fmt"
)

// Runner is anything with a blocking, cancellable Run. *bridge.Bridge
// satisfies it.
type Runner interface {
	Run(ctx context.Context) error
}

// BridgeService runs the NATS bridge under supervision.
type BridgeService struct {
	bridge Runner
	name   string
}

// NewBridgeService wraps a bridge.
func NewBridgeService(bridge Runner) *BridgeService {
	return &BridgeService{bridge: bridge, name: "nats-bridge"}
}

// Serve runs the bridge until ctx ends. Start failures are returned so
// suture retries them with backoff.
func (s *BridgeService) Serve(ctx context.Context) error {
	err := s.bridge.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("nats bridge: %w", err)
	}
	return err
}

func (s *BridgeService) String() string {
	return s.name
}
