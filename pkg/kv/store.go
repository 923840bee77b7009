// Package kv defines the durable key-value storage contract the ledger persists into.
//
// A Store holds opaque byte blobs under string keys. Unlike a cache, entries never
// expire: whatever was last written under a key is what a later session reads back.
package kv

import (
	"context"
)

// Store defines the interface that all storage backends must satisfy.
// It provides basic blob operations with context support for cancellation and timeouts.
type Store interface {
	// Get retrieves the blob stored under key.
	// Returns ErrKeyNotFound if nothing was ever written under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the blob stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the blob stored under key.
	// Returns nil if the key was deleted or didn't exist.
	Delete(ctx context.Context, key string) error

	// Name returns the identifier for this backend (e.g., "memory", "sqlite", "redis").
	// Used for logging and metrics.
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// Pinger is implemented by backends that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s when it supports it and reports nil otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
