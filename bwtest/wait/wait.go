// Package wait provides polling helpers for integration tests.
package wait

import (
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
)

var (
	// ErrNoResponse is returned when f does not return within the timeout.
	ErrNoResponse = errors.New("method did not return within the timeout")
)

// PollInterval is the default polling interval used by NoError.
const PollInterval = 200 * time.Millisecond

// NoError polls f until it returns nil or the timeout is reached, in which
// case the last error returned by f is returned.
//
// NOTE: f is not interrupted. A blocking f may hold NoError past the timeout.
func NoError(f func() error, timeout time.Duration) error {
	return NoErrorEvery(f, PollInterval, timeout)
}

// NoErrorEvery is NoError with a custom polling interval.
func NoErrorEvery(f func() error, interval, timeout time.Duration) error {
	// Try right away so a ready condition does not pay for one interval.
	lastErr := f()
	if lastErr == nil {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	poll := ticker.New(interval)
	poll.Resume()
	defer poll.Stop()

	for {
		select {
		case <-deadline.C:
			if lastErr == nil {
				return ErrNoResponse
			}

			return lastErr

		case <-poll.Ticks():
			lastErr = f()
			if lastErr == nil {
				return nil
			}
		}
	}
}

// Predicate polls pred until it returns true or the timeout is reached.
func Predicate(pred func() bool, timeout time.Duration) error {
	return NoError(func() error {
		if pred() {
			return nil
		}

		return ErrNoResponse
	}, timeout)
}
