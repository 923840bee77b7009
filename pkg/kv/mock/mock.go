// Package mock provides a kv.Store whose behaviour tests can script call by call.
package mock

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"pocket-ledger/pkg/kv"
)

// MockStore answers from its hooks when they are set and from an in-memory map
// otherwise. It counts calls so tests can assert how often a backend was reached.
type MockStore struct {
	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte) error
	DeleteFunc func(ctx context.Context, key string) error
	// PingFunc makes the store a kv.Pinger. A nil PingFunc reports healthy.
	PingFunc func(ctx context.Context) error

	name string

	mu   sync.Mutex
	data map[string][]byte

	gets, sets atomic.Int64
	closed     atomic.Bool
}

// NewMockStore returns an empty store: every key is missing until something is Set.
func NewMockStore(name string) *MockStore {
	return NewMockStoreWithData(name, nil)
}

// NewMockStoreWithData returns a store seeded with a copy of data.
func NewMockStoreWithData(name string, data map[string][]byte) *MockStore {
	m := &MockStore{name: name, data: maps.Clone(data)}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	return m
}

func (m *MockStore) Name() string { return m.name }

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.gets.Add(1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte) error {
	m.sets.Add(1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStore) Close() error {
	m.closed.Store(true)
	return nil
}

// Stored returns what was last written under key, bypassing the hooks.
func (m *MockStore) Stored(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MockStore) GetCalls() int { return int(m.gets.Load()) }
func (m *MockStore) SetCalls() int { return int(m.sets.Load()) }
func (m *MockStore) Closed() bool  { return m.closed.Load() }
