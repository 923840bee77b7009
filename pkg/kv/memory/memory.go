package memory

import (
	"context"
	"sync"

	"pocket-ledger/pkg/kv"
)

// MemoryStore is an in-process implementation of kv.BatchStore.
// It provides thread-safe operations and stores private copies of every blob, so
// callers may reuse their buffers. Contents live as long as the process.
type MemoryStore struct {
	// data stores the blobs
	data map[string][]byte

	// mu protects concurrent access to data
	mu sync.RWMutex

	// config holds the store configuration
	config MemoryStoreConfig

	closed bool
}

// MemoryStoreConfig holds configuration for the memory store
type MemoryStoreConfig struct {
	// Name is the backend identifier
	Name string

	// MaxSize is the maximum number of keys (0 = unlimited).
	// Writes of new keys beyond the limit fail with kv.ErrUnavailable.
	MaxSize int
}

// NewMemoryStore creates a new empty in-memory store.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.Name == "" {
		config.Name = "memory"
	}

	return &MemoryStore{
		data:   make(map[string][]byte),
		config: config,
	}
}

// Get retrieves a blob.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kv.ErrClosed
	}

	value, exists := s.data[key]
	if !exists {
		return nil, kv.ErrKeyNotFound
	}
	return clone(value), nil
}

// Set overwrites a blob.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMulti(ctx, map[string][]byte{key: value})
}

// Delete removes a key. Returns nil even if the key doesn't exist.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrClosed
	}
	delete(s.data, key)
	return nil
}

// GetMulti retrieves several keys under a single read lock.
func (s *MemoryStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	for _, key := range keys {
		if err := kv.ValidateKey(key); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kv.ErrClosed
	}

	results := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if value, ok := s.data[key]; ok {
			results[key] = clone(value)
		}
	}
	return results, nil
}

// SetMulti overwrites several keys under a single write lock, so readers never
// observe a partial update.
func (s *MemoryStore) SetMulti(ctx context.Context, items map[string][]byte) error {
	for key := range items {
		if err := kv.ValidateKey(key); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrClosed
	}

	if s.config.MaxSize > 0 {
		added := 0
		for key := range items {
			if _, exists := s.data[key]; !exists {
				added++
			}
		}
		if len(s.data)+added > s.config.MaxSize {
			return kv.WrapError(kv.ErrUnavailable, s.config.Name, "set")
		}
	}

	for key, value := range items {
		s.data[key] = clone(value)
	}
	return nil
}

// Name returns the backend name.
func (s *MemoryStore) Name() string {
	return s.config.Name
}

// Close drops all data. Later operations fail with kv.ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}

// Stats returns current store statistics.
func (s *MemoryStore) Stats() MemoryStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := MemoryStoreStats{
		Size:    len(s.data),
		MaxSize: s.config.MaxSize,
	}
	for _, v := range s.data {
		stats.Bytes += len(v)
	}
	return stats
}

// MemoryStoreStats holds store statistics.
type MemoryStoreStats struct {
	Size    int // Current number of keys
	MaxSize int // Maximum allowed keys (0 = unlimited)
	Bytes   int // Total size of stored blobs
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
