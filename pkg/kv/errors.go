package kv

import (
	"errors"
	"fmt"
	"strings"
)

// Errors every backend reports in the same way, possibly wrapped by WrapError.
var (
	// ErrKeyNotFound is returned when nothing was ever stored under the requested key
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrInvalidKey is returned when a key is empty, too long or contains control characters
	ErrInvalidKey = errors.New("kv: invalid key")

	// ErrUnavailable is returned when a backend cannot be reached
	ErrUnavailable = errors.New("kv: store unavailable")

	// ErrTimeout is returned when a storage operation times out
	ErrTimeout = errors.New("kv: operation timeout")

	// ErrCircuitOpen is returned when the circuit breaker is in open state
	ErrCircuitOpen = errors.New("kv: circuit breaker open")

	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("kv: store closed")
)

// IsNotFound checks if the given error indicates that a key was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsTimeout checks if the given error indicates a timeout occurred.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnavailable checks if the given error indicates the backend is unreachable,
// including an open circuit breaker and a closed store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrClosed)
}

// Error classes reported by ClassifyError.
const (
	ClassCircuitOpen   = "circuit_breaker_open"
	ClassTimeout       = "timeout"
	ClassNotFound      = "key_not_found"
	ClassUnavailable   = "unavailable"
	ClassClosed        = "closed"
	ClassInvalidKey    = "invalid_key"
	ClassConnection    = "connection"
	ClassSerialization = "serialization"
	ClassBackend       = "backend"
	ClassOther         = "other"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{ErrCircuitOpen, ClassCircuitOpen},
	{ErrTimeout, ClassTimeout},
	{ErrKeyNotFound, ClassNotFound},
	{ErrUnavailable, ClassUnavailable},
	{ErrClosed, ClassClosed},
	{ErrInvalidKey, ClassInvalidKey},
}

// Driver errors carry no sentinel, so they are classified by their text.
var messageClasses = []struct {
	words []string
	class string
}{
	{[]string{"connection", "connect", "dial"}, ClassConnection},
	{[]string{"marshal", "unmarshal", "encode", "decode"}, ClassSerialization},
	{[]string{"redis", "postgres", "sqlite", "sql"}, ClassBackend},
}

// ClassifyError returns a short, metrics-label-safe classification of err, or "none"
// for nil.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}
	for _, c := range sentinelClasses {
		if errors.Is(err, c.err) {
			return c.class
		}
	}
	msg := strings.ToLower(err.Error())
	for _, c := range messageClasses {
		for _, w := range c.words {
			if strings.Contains(msg, w) {
				return c.class
			}
		}
	}
	return ClassOther
}

// WrapError wraps an error with the backend name and operation.
func WrapError(err error, backend string, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("kv %s %s: %w", backend, operation, err)
}
