package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket-ledger/pkg/kv"
)

func skipIfNoRedis(t *testing.T, r *RedisStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
}

func setupTestRedis(t *testing.T) *RedisStore {
	config := DefaultRedisStoreConfig()
	config.Name = "TestRedis"
	config.KeyPrefix = "{test-ledger}:"
	config.DialTimeout = time.Second

	r, err := NewRedisStore(config)
	if err != nil {
		t.Skipf("Failed to create Redis client: %v", err)
	}

	skipIfNoRedis(t, r)

	if err := r.FlushPrefix(context.Background()); err != nil {
		t.Fatalf("FlushPrefix failed: %v", err)
	}
	return r
}

func TestNewRedisStore_ClusterKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"{ledger}:", false},
		{"app:{alice}:", false},
		{"ledger:", true},
		{"", true},
		{"{}:", true},
		{"{ledger:", true},
		{"}ledger{:", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			config := DefaultRedisStoreConfig()
			config.ClusterAddrs = []string{"127.0.0.1:1"}
			config.KeyPrefix = tt.prefix

			err := config.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, err := NewRedisStore(config); !errors.Is(err, ErrClusterKeyPrefix) {
					t.Errorf("NewRedisStore: expected ErrClusterKeyPrefix, got %v", err)
				}
			}
		})
	}

	single := DefaultRedisStoreConfig()
	single.KeyPrefix = "ledger:"
	if err := single.validate(); err != nil {
		t.Errorf("Single-node config must accept any prefix, got %v", err)
	}
}

func TestNewRedisStore_NoAddress(t *testing.T) {
	config := DefaultRedisStoreConfig()
	config.Addr = ""

	if _, err := NewRedisStore(config); err == nil {
		t.Fatal("Expected error without addresses")
	}
}

func TestRedisStore_SetGet(t *testing.T) {
	r := setupTestRedis(t)
	defer r.Close()

	ctx := context.Background()

	if _, err := r.Get(ctx, "accounts"); !kv.IsNotFound(err) {
		t.Fatalf("Expected ErrKeyNotFound, got %v", err)
	}

	if err := r.Set(ctx, "accounts", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := r.Get(ctx, "accounts")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("Unexpected value %q", got)
	}
}

func TestRedisStore_Multi(t *testing.T) {
	r := setupTestRedis(t)
	defer r.Close()

	ctx := context.Background()
	err := r.SetMulti(ctx, map[string][]byte{
		"accounts":     []byte("[1]"),
		"transactions": []byte("[2]"),
	})
	if err != nil {
		t.Fatalf("SetMulti failed: %v", err)
	}

	got, err := r.GetMulti(ctx, []string{"accounts", "goals", "transactions"})
	if err != nil {
		t.Fatalf("GetMulti failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if string(got["transactions"]) != "[2]" {
		t.Errorf("Unexpected transactions blob %q", got["transactions"])
	}
}

func TestRedisStore_Delete(t *testing.T) {
	r := setupTestRedis(t)
	defer r.Close()

	ctx := context.Background()
	r.Set(ctx, "goals", []byte("[]"))

	if err := r.Delete(ctx, "goals"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := r.Get(ctx, "goals"); !kv.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}
}
