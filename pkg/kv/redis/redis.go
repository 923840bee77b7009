package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocket-ledger/pkg/kv"

	"github.com/redis/rueidis"
)

// RedisStore implements kv.BatchStore on a Redis server, typically one running on the
// same machine. Keys never expire.
type RedisStore struct {
	client rueidis.Client
	name   string
	config RedisStoreConfig
}

type RedisStoreConfig struct {
	Name string
	// Addr is the Redis server address for single node/sentinel mode.
	// For cluster mode, use ClusterAddrs instead.
	Addr string
	// ClusterAddrs is a list of Redis cluster node addresses.
	// In cluster mode KeyPrefix must contain a hash tag (e.g. "{ledger}:") so that
	// SetMulti can write every blob in one MSET.
	ClusterAddrs []string
	Username     string
	Password     string
	// DB is the Redis database number (0-15).
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Name:         "redis",
		Addr:         "localhost:6379",
		DB:           0,
		KeyPrefix:    "{pocket-ledger}:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// ErrClusterKeyPrefix is returned for a cluster configuration whose KeyPrefix has no
// hash tag. Without one the blobs land in different slots and MGET/MSET are refused.
var ErrClusterKeyPrefix = errors.New("redis: cluster mode needs a KeyPrefix with a hash tag, e.g. \"{ledger}:\"")

func (c RedisStoreConfig) validate() error {
	if len(c.ClusterAddrs) > 0 && !hasHashTag(c.KeyPrefix) {
		return fmt.Errorf("%w: got %q", ErrClusterKeyPrefix, c.KeyPrefix)
	}
	return nil
}

// hasHashTag follows the Redis cluster rule: the slot is computed from the text
// between the first "{" and the next "}", when that text is not empty.
func hasHashTag(prefix string) bool {
	open := strings.IndexByte(prefix, '{')
	if open < 0 {
		return false
	}
	closing := strings.IndexByte(prefix[open+1:], '}')
	return closing > 0
}

func NewRedisStore(config RedisStoreConfig) (*RedisStore, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	var initAddress []string
	if len(config.ClusterAddrs) > 0 {
		initAddress = config.ClusterAddrs
	} else if config.Addr != "" {
		initAddress = []string{config.Addr}
	} else {
		return nil, fmt.Errorf("redis: no addresses configured (set Addr or ClusterAddrs)")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		// Client-side caching is pointless for four blobs read once per session.
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w: %v", kv.ErrUnavailable, err)
	}

	return &RedisStore{
		client: client,
		name:   config.Name,
		config: config,
	}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}

	resp := r.client.Do(ctx, r.client.B().Get().Key(r.config.KeyPrefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, kv.WrapError(err, r.name, "get")
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, kv.WrapError(fmt.Errorf("failed to read response: %w", err), r.name, "get")
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(rueidis.BinaryString(value)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return kv.WrapError(err, r.name, "set")
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}

	if err := r.client.Do(ctx, r.client.B().Del().Key(r.config.KeyPrefix+key).Build()).Error(); err != nil {
		return kv.WrapError(err, r.name, "delete")
	}
	return nil
}

// GetMulti reads every key with one MGET.
func (r *RedisStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	results := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return results, nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		if err := kv.ValidateKey(key); err != nil {
			return nil, err
		}
		fullKeys[i] = r.config.KeyPrefix + key
	}

	msgs, err := r.client.Do(ctx, r.client.B().Mget().Key(fullKeys...).Build()).ToArray()
	if err != nil {
		return nil, kv.WrapError(err, r.name, "get multi")
	}

	for i, msg := range msgs {
		if msg.IsNil() {
			continue
		}
		data, err := msg.AsBytes()
		if err != nil {
			return nil, kv.WrapError(fmt.Errorf("key %s: failed to read: %w", keys[i], err), r.name, "get multi")
		}
		results[keys[i]] = data
	}
	return results, nil
}

// SetMulti writes every key with one MSET, which Redis applies atomically.
func (r *RedisStore) SetMulti(ctx context.Context, items map[string][]byte) error {
	if len(items) == 0 {
		return nil
	}

	cmd := r.client.B().Mset().KeyValue()
	for key, value := range items {
		if err := kv.ValidateKey(key); err != nil {
			return err
		}
		cmd = cmd.KeyValue(r.config.KeyPrefix+key, rueidis.BinaryString(value))
	}

	if err := r.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return kv.WrapError(err, r.name, "set multi")
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return kv.WrapError(err, r.name, "ping")
	}
	return nil
}

// FlushPrefix deletes every key under the configured prefix.
func (r *RedisStore) FlushPrefix(ctx context.Context) error {
	keys, err := r.client.Do(ctx, r.client.B().Keys().Pattern(r.config.KeyPrefix+"*").Build()).AsStrSlice()
	if err != nil {
		return kv.WrapError(err, r.name, "keys")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Do(ctx, r.client.B().Del().Key(keys...).Build()).Error(); err != nil {
		return kv.WrapError(err, r.name, "flush")
	}
	return nil
}

func (r *RedisStore) Name() string {
	return r.name
}

func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}
