// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package bridge

import (
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := newBreaker(BreakerConfig{
		Name:             "consecutive",
		MaxRequests:      1,
		Timeout:          time.Hour,
		FailureThreshold: 2,
	})

	fail := func() (struct{}, error) { return struct{}{}, errors.New("publish failed") }
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(fail); err == nil {
			t.Fatal("expected failure")
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}
	_, err := cb.Execute(func() (struct{}, error) { return struct{}{}, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Execute() while open error = %v, want ErrOpenState", err)
	}
}

func TestBreaker_OpensOnFailureRatio(t *testing.T) {
	t.Parallel()

	cb := newBreaker(BreakerConfig{
		Name:         "ratio",
		MaxRequests:  1,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  4,
	})

	ok := func() (struct{}, error) { return struct{}{}, nil }
	fail := func() (struct{}, error) { return struct{}{}, errors.New("x") }

	// ok, fail, ok, fail: the fourth request reaches 50%.
	for i, fn := range []func() (struct{}, error){ok, fail, ok} {
		_, _ = cb.Execute(fn)
		if cb.State() != gobreaker.StateClosed {
			t.Fatalf("breaker opened early after request %d", i+1)
		}
	}
	_, _ = cb.Execute(fail)

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("State() = %v, want open", cb.State())
	}
}

func TestDefaultBreakerConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultBreakerConfig("nats")
	if cfg.Name != "nats" || cfg.FailureThreshold != 5 || cfg.Timeout != 30*time.Second {
		t.Errorf("DefaultBreakerConfig() = %+v", cfg)
	}
}
