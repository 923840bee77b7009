package prometheus

import (
	"time"

	"pocket-ledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Storage
	storageOps     *prometheus.CounterVec
	storageErrors  *prometheus.CounterVec
	storageLatency *prometheus.HistogramVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Ledger
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	loads           *prometheus.CounterVec
	undos           *prometheus.CounterVec
	balances        *prometheus.GaugeVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		storageOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations per backend and operation",
			},
			[]string{"backend", "operation"},
		),
		storageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of failed storage operations per backend, operation and error class",
			},
			[]string{"backend", "operation", "class"},
		),
		storageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~3s
			},
			[]string{"backend", "operation"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per backend",
			},
			[]string{"backend"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per backend (0=closed, 1=open, 2=half-open)",
			},
			[]string{"backend"},
		),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Total number of ledger mutations per operation and error class",
			},
			[]string{"operation", "error"},
		),
		mutationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_duration_seconds",
				Help:      "Ledger mutation latency including persistence",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"operation"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blob_loads_total",
				Help:      "Outcome of reading each persisted blob at startup",
			},
			[]string{"blob", "outcome"},
		),
		undos: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "undo_total",
				Help:      "Total number of undo attempts per outcome",
			},
			[]string{"outcome"},
		),
		balances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "account_balance",
				Help:      "Current balance per account",
			},
			[]string{"account"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.storageOps,
		pc.storageErrors,
		pc.storageLatency,
		pc.circuitOpens,
		pc.circuitState,
		pc.mutations,
		pc.mutationLatency,
		pc.loads,
		pc.undos,
		pc.balances,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordStorage records a storage backend operation.
func (pc *PrometheusCollector) RecordStorage(backend, op, errClass string, duration time.Duration) {
	pc.storageOps.WithLabelValues(backend, op).Inc()
	if errClass != metrics.ClassNone {
		pc.storageErrors.WithLabelValues(backend, op, errClass).Inc()
	}
	pc.storageLatency.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(backend string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(backend).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(backend).Inc()
	}
}

// RecordMutation records a ledger mutation and its error class ("none" on success).
func (pc *PrometheusCollector) RecordMutation(op string, errClass string, duration time.Duration) {
	pc.mutations.WithLabelValues(op, errClass).Inc()
	pc.mutationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordLoad(blob string, outcome string) {
	pc.loads.WithLabelValues(blob, outcome).Inc()
}

func (pc *PrometheusCollector) RecordUndo(outcome string) {
	pc.undos.WithLabelValues(outcome).Inc()
}

func (pc *PrometheusCollector) RecordBalance(accountID string, balance float64) {
	pc.balances.WithLabelValues(accountID).Set(balance)
}
