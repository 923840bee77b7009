// Package config loads pocket-ledger settings from an optional YAML file, an optional
// .env file and LEDGER_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type StorageConfig struct {
	// Backend is one of memory, sqlite, redis or postgres.
	Backend     string        `mapstructure:"backend"`
	Path        string        `mapstructure:"path"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LedgerConfig struct {
	UndoWindow time.Duration `mapstructure:"undo_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dev    bool   `mapstructure:"dev"`
}

type APIConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", "pocket-ledger.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.key_prefix", "")
	v.SetDefault("storage.timeout", 3*time.Second)
	v.SetDefault("ledger.undo_window", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.dev", false)
	v.SetDefault("api.address", "127.0.0.1:8080")
	v.SetDefault("api.read_timeout", 5*time.Second)
	v.SetDefault("api.write_timeout", 10*time.Second)
	v.SetDefault("metrics.namespace", "pocket_ledger")
}

// Load reads configuration. An empty path looks for pocket-ledger.yaml in the working
// directory and tolerates its absence; an explicit path must exist.
//
// Environment overrides use the LEDGER_ prefix with underscores for nesting, e.g.
// LEDGER_STORAGE_BACKEND=memory.
func Load(path string) (*Config, error) {
	// A missing .env is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("pocket-ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the backend-specific settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("config: storage.redis_addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown storage.backend %q", c.Storage.Backend)
	}

	if c.Ledger.UndoWindow <= 0 {
		return errors.New("config: ledger.undo_window must be positive")
	}
	return nil
}
