package resilience

import (
	"context"
	"errors"
	"time"

	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/logging"
	"pocket-ledger/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ResilientStore wraps a kv.Store with circuit breaker and timeout protection.
// It implements kv.BatchStore; batch calls go to the inner store's native batch
// operation when it has one.
type ResilientStore struct {
	store   kv.Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewResilientStore creates a new resilient wrapper around the given store.
func NewResilientStore(store kv.Store, config ResilientConfig) *ResilientStore {
	return NewResilientStoreWithMetrics(store, config, metrics.NoOpCollector{})
}

// NewResilientStoreWithMetrics creates a new resilient wrapper with a custom metrics collector.
func NewResilientStoreWithMetrics(store kv.Store, config ResilientConfig, metricsCollector metrics.MetricsCollector) *ResilientStore {
	if metricsCollector == nil {
		metricsCollector = metrics.NoOpCollector{}
	}
	logger := logging.Global().Named("resilience").Named(store.Name())

	rs := &ResilientStore{
		store:   store,
		timeout: config.Timeout,
		metrics: metricsCollector,
		logger:  logger,
	}

	logger.Info("resilient store initialized",
		logging.Backend(store.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("failure_threshold", config.Breaker.FailureThreshold),
		zap.Duration("open_for", config.Breaker.OpenFor),
	)

	settings := config.Breaker.settings(store.Name())
	// A missing blob is a first run, and a bad key is a caller bug. Neither says
	// anything about backend health.
	settings.IsSuccessful = func(err error) bool {
		return err == nil || kv.IsNotFound(err) || errors.Is(err, kv.ErrInvalidKey)
	}
	settings.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
		logger.Warn("circuit breaker state changed",
			logging.Backend(name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		rs.metrics.RecordCircuitState(name, circuitState(to))
	}

	rs.cb = gobreaker.NewCircuitBreaker(settings)

	return rs
}

// Name returns the name of the underlying store.
func (rs *ResilientStore) Name() string {
	return rs.store.Name()
}

// State reports the circuit breaker state.
func (rs *ResilientStore) State() metrics.CircuitState {
	return circuitState(rs.cb.State())
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// execute runs fn through the timeout and circuit breaker, records metrics and
// translates breaker and deadline errors into kv errors.
func (rs *ResilientStore) execute(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error), fields ...zap.Field) (interface{}, error) {
	start := time.Now()

	if rs.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.timeout)
		defer cancel()
	}

	result, err := rs.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	duration := time.Since(start)
	if err == nil || kv.IsNotFound(err) {
		rs.metrics.RecordStorage(rs.store.Name(), op, metrics.ClassNone, duration)
		return result, err
	}

	fields = append(fields, logging.Operation(op))
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = kv.ErrCircuitOpen
	} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = kv.ErrTimeout
	}
	class := kv.ClassifyError(err)
	rs.metrics.RecordStorage(rs.store.Name(), op, class, duration)

	switch class {
	case kv.ClassCircuitOpen:
		rs.logger.Warn("circuit breaker open - request rejected", fields...)
		return nil, kv.WrapError(err, rs.store.Name(), op)
	case kv.ClassTimeout:
		rs.logger.Warn("operation timeout", append(fields,
			zap.Duration("timeout", rs.timeout),
			zap.Duration("elapsed", duration),
		)...)
		return nil, kv.WrapError(err, rs.store.Name(), op)
	}

	rs.logger.Error("storage operation failed", append(fields,
		zap.String("class", class),
		zap.Duration("duration", duration),
		zap.Error(err),
	)...)
	return nil, err
}

// Get retrieves a blob with timeout and circuit breaker protection.
func (rs *ResilientStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := rs.execute(ctx, "get", func(ctx context.Context) (interface{}, error) {
		return rs.store.Get(ctx, key)
	}, zap.String("key", key))
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Set stores a blob with timeout and circuit breaker protection.
func (rs *ResilientStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := rs.execute(ctx, "set", func(ctx context.Context) (interface{}, error) {
		return nil, rs.store.Set(ctx, key, value)
	}, zap.String("key", key), zap.Int("bytes", len(value)))
	return err
}

// Delete removes a blob with timeout and circuit breaker protection.
func (rs *ResilientStore) Delete(ctx context.Context, key string) error {
	_, err := rs.execute(ctx, "delete", func(ctx context.Context) (interface{}, error) {
		return nil, rs.store.Delete(ctx, key)
	}, zap.String("key", key))
	return err
}

// GetMulti reads several blobs in one protected call.
func (rs *ResilientStore) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	result, err := rs.execute(ctx, "get_multi", func(ctx context.Context) (interface{}, error) {
		return kv.GetMulti(ctx, rs.store, keys)
	}, zap.Strings("keys", keys))
	if err != nil {
		return nil, err
	}
	return result.(map[string][]byte), nil
}

// SetMulti writes several blobs in one protected call. It is atomic only if the inner
// store implements kv.BatchStore.
func (rs *ResilientStore) SetMulti(ctx context.Context, items map[string][]byte) error {
	_, err := rs.execute(ctx, "set_multi", func(ctx context.Context) (interface{}, error) {
		return nil, kv.SetMulti(ctx, rs.store, items)
	}, zap.Int("items", len(items)))
	return err
}

// Ping checks the inner store through the breaker.
func (rs *ResilientStore) Ping(ctx context.Context) error {
	_, err := rs.execute(ctx, "ping", func(ctx context.Context) (interface{}, error) {
		return nil, kv.Ping(ctx, rs.store)
	})
	return err
}

// Close closes the underlying store.
func (rs *ResilientStore) Close() error {
	return rs.store.Close()
}
