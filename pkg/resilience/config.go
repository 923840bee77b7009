package resilience

import (
	"time"

	"github.com/sony/gobreaker"
)

// ResilientConfig bounds every backend call by Timeout and guards the backend with a
// circuit breaker.
type ResilientConfig struct {
	Timeout time.Duration
	Breaker BreakerConfig
}

// BreakerConfig maps onto gobreaker.Settings.
type BreakerConfig struct {
	// HalfOpenProbes is how many calls may pass while the breaker is half-open.
	HalfOpenProbes uint32

	// ResetEvery clears the failure counts while closed. Zero keeps them until the
	// breaker trips.
	ResetEvery time.Duration

	// OpenFor is how long the breaker rejects calls before probing the backend again.
	OpenFor time.Duration

	// FailureThreshold trips the breaker after that many consecutive failures.
	FailureThreshold uint32

	// Trip, when set, replaces FailureThreshold.
	Trip func(counts gobreaker.Counts) bool
}

const defaultFailureThreshold = 5

// DefaultResilientConfig returns defaults tuned for a single local user: a handful of
// writes per minute, so the breaker trips on consecutive failures rather than a rate.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout: 5 * time.Second,
		Breaker: BreakerConfig{
			HalfOpenProbes:   1,
			OpenFor:          10 * time.Second,
			FailureThreshold: defaultFailureThreshold,
		},
	}
}

func (c ResilientConfig) WithTimeout(timeout time.Duration) ResilientConfig {
	c.Timeout = timeout
	return c
}

// WithOpenFor changes how long an open breaker waits before probing again.
func (c ResilientConfig) WithOpenFor(d time.Duration) ResilientConfig {
	c.Breaker.OpenFor = d
	return c
}

func (c ResilientConfig) WithFailureThreshold(n uint32) ResilientConfig {
	c.Breaker.FailureThreshold = n
	return c
}

func (b BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if b.Trip != nil {
		return b.Trip(counts)
	}
	threshold := b.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	return counts.ConsecutiveFailures >= threshold
}

func (b BreakerConfig) settings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: b.HalfOpenProbes,
		Interval:    b.ResetEvery,
		Timeout:     b.OpenFor,
		ReadyToTrip: b.readyToTrip,
	}
}
