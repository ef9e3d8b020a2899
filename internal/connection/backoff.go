// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

package connection

import (
	"math"
	"time"
)

// BackoffDelay returns base * 2^(attempt-1). attempt is the failure count
// after incrementing, so attempt 1 waits base. The result saturates instead
// of overflowing.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 || base <= 0 {
		return base
	}
	shift := attempt - 1
	if shift >= 62 || base > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return base << shift
}

// withJitter adds up to fraction*delay of extra wait. r must be in [0,1).
func withJitter(delay time.Duration, fraction, r float64) time.Duration {
	if fraction <= 0 || delay <= 0 {
		return delay
	}
	extra := time.Duration(float64(delay) * fraction * r)
	if extra < 0 || delay > time.Duration(math.MaxInt64)-extra {
		return delay
	}
	return delay + extra
}
