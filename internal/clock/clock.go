// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

// Package clock abstracts the timer operations used by the connection
// manager so backoff and heartbeat scheduling can be driven deterministically
// in tests.
//
// Production code uses Real(). Tests use Fake(start) and move time forward
// explicitly with Advance:
//
//	clk := clock.Fake(time.Unix(0, 0))
//	mgr := connection.New(url, dialer, connection.WithClock(clk))
//	clk.Advance(time.Second) // fires the first reconnect timer
package clock

import "time"

// Clock schedules callbacks and reports the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once after d has elapsed. The returned Timer can
	// cancel the call before it happens.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
