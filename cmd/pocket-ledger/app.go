package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"pocket-ledger/pkg/config"
	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/kv/memory"
	"pocket-ledger/pkg/kv/postgres"
	"pocket-ledger/pkg/kv/redis"
	"pocket-ledger/pkg/kv/sqlite"
	"pocket-ledger/pkg/ledger"
	"pocket-ledger/pkg/logging"
	promcollector "pocket-ledger/pkg/metrics/prometheus"
	"pocket-ledger/pkg/resilience"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app is everything a subcommand needs: a loaded ledger and the pieces behind it.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	backend  kv.Store
	registry *prometheus.Registry
	store    *ledger.Store
}

// openApp loads configuration, opens the configured backend and loads the ledger.
// Blobs that could not be read are reported on stderr; the ledger still opens with
// defaults for them.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	collector := promcollector.NewPrometheusCollector(cfg.Metrics.Namespace)
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	raw, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	backend := resilience.NewResilientStoreWithMetrics(raw,
		resilience.DefaultResilientConfig().WithTimeout(cfg.Storage.Timeout),
		collector,
	)

	store := ledger.New(backend,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithMetrics(collector),
		ledger.WithNotifier(consoleNotifier(os.Stdout, os.Stderr)),
		ledger.WithUndoWindow(cfg.Ledger.UndoWindow),
		ledger.WithKeyPrefix(cfg.Storage.KeyPrefix),
	)

	report, err := store.Load(ctx)
	if err != nil {
		logger.Warn("ledger loaded with defaults", zap.Error(err))
	}
	if report != nil {
		for _, br := range report.Blobs() {
			if br.Migrated > 0 {
				logger.Info("upgraded legacy records", logging.Blob(br.Blob), zap.Int("records", br.Migrated))
			}
		}
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		registry: registry,
		store:    store,
	}, nil
}

// Close releases the ledger and its backend.
func (a *app) Close() error {
	a.store.Close()
	err := a.backend.Close()
	a.logger.Sync()
	return err
}

func newLogger(c config.LogConfig) (*logging.Logger, error) {
	return logging.NewLogger(logging.Settings(logging.DefaultConfig(), c.Level, c.Format, c.Dev))
}

// openBackend opens the configured storage backend.
func openBackend(ctx context.Context, c config.StorageConfig) (kv.Store, error) {
	switch c.Backend {
	case config.BackendMemory:
		return memory.NewMemoryStore(memory.MemoryStoreConfig{}), nil
	case config.BackendSQLite:
		sc := sqlite.DefaultSQLiteStoreConfig()
		sc.Path = c.Path
		s, err := sqlite.NewSQLiteStore(ctx, sc)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		rc := redis.DefaultRedisStoreConfig()
		rc.Addr = c.RedisAddr
		s, err := redis.NewRedisStore(rc)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		pc := postgres.DefaultPostgresStoreConfig()
		pc.DSN = c.PostgresDSN
		s, err := postgres.NewPostgresStore(ctx, pc)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
}

// consoleNotifier prints success notifications to out and failures to errOut.
func consoleNotifier(out, errOut io.Writer) ledger.Notifier {
	return ledger.NotifierFunc(func(n ledger.Notification) {
		if n.Level == ledger.LevelError {
			fmt.Fprintln(errOut, n.Message)
			return
		}
		fmt.Fprintln(out, n.Message)
	})
}

// settle turns the result of a mutation into the command's outcome. A persistence
// failure leaves the change in memory only, which is lost when the process exits, so
// settle retries the write once with Flush before giving up.
func (a *app) settle(ctx context.Context, err error) error {
	if err == nil || !ledger.IsPersistence(err) {
		return err
	}
	a.logger.Warn("write failed, retrying", zap.Error(err))
	if ferr := a.store.Flush(ctx); ferr != nil {
		return ferr
	}
	return nil
}

// fail prints err and returns the matching exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	if ledger.IsValidation(err) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}
