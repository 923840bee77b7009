package ledger

import (
	"time"

	"pocket-ledger/pkg/logging"
	"pocket-ledger/pkg/metrics"
)

// DefaultUndoWindow is how long a removed transaction can be restored.
const DefaultUndoWindow = 5 * time.Second

type Option func(*Store)

// WithLogger replaces the global logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records mutations, loads, undos and balances on collector.
func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(s *Store) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// WithNotifier receives the user-facing message of every operation.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock replaces time.Now for timestamps, ids and undo expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUndoWindow sets how long a removed transaction can be restored. Non-positive
// values keep DefaultUndoWindow.
func WithUndoWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.undoWindow = d
		}
	}
}

// WithKeyPrefix namespaces the four blobs, e.g. "alice" stores "alice:goals".
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}
