package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting ledger metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory for tests).
type MetricsCollector interface {
	// Storage operations, per backend. op is get, set, delete, get_multi or set_multi;
	// errClass is ClassNone on success.
	RecordStorage(backend, op, errClass string, duration time.Duration)

	// Circuit breaker
	RecordCircuitState(backend string, state CircuitState)

	// Ledger-level
	RecordMutation(op string, errClass string, duration time.Duration)
	RecordLoad(blob string, outcome string)
	RecordUndo(outcome string)
	RecordBalance(accountID string, balance float64)
}

// ClassNone is the error class of a successful operation.
const ClassNone = "none"

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the backend has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

func (NoOpCollector) RecordStorage(backend, op, errClass string, duration time.Duration) {}

func (NoOpCollector) RecordCircuitState(backend string, state CircuitState) {}

func (NoOpCollector) RecordMutation(op string, errClass string, duration time.Duration) {}

func (NoOpCollector) RecordLoad(blob string, outcome string) {}

func (NoOpCollector) RecordUndo(outcome string) {}

func (NoOpCollector) RecordBalance(accountID string, balance float64) {}
