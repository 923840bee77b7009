package memory

import (
	"maps"
	"sync"
	"time"

	"pocket-ledger/pkg/metrics"
)

// MemoryCollector implements MetricsCollector for in-memory testing.
type MemoryCollector struct {
	mu sync.RWMutex

	// Per-backend metrics
	backendMetrics map[string]*BackendMetrics

	// Ledger-level metrics
	mutations map[string]map[string]int64
	loads     map[string]string
	undos     map[string]int64
	balances  map[string]float64
}

// BackendMetrics holds metrics for a single storage backend.
type BackendMetrics struct {
	// Operation counts by op name
	Operations map[string]int64
	Errors     int64
	// Failures by error class
	ErrorClasses map[string]int64

	// Circuit breaker
	CircuitState metrics.CircuitState
	CircuitOpens int64

	Latencies []time.Duration
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		backendMetrics: make(map[string]*BackendMetrics),
		mutations:      make(map[string]map[string]int64),
		loads:          make(map[string]string),
		undos:          make(map[string]int64),
		balances:       make(map[string]float64),
	}
}

// backend returns the BackendMetrics for name, creating it if needed.
// Callers must hold mc.mu.
func (mc *MemoryCollector) backend(name string) *BackendMetrics {
	bm, exists := mc.backendMetrics[name]
	if !exists {
		bm = &BackendMetrics{Operations: make(map[string]int64), ErrorClasses: make(map[string]int64)}
		mc.backendMetrics[name] = bm
	}
	return bm
}

// RecordStorage records a storage backend operation.
func (mc *MemoryCollector) RecordStorage(backend, op, errClass string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	bm := mc.backend(backend)
	bm.Operations[op]++
	if errClass != metrics.ClassNone {
		bm.Errors++
		bm.ErrorClasses[errClass]++
	}
	bm.Latencies = append(bm.Latencies, duration)
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(backend string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	bm := mc.backend(backend)
	oldState := bm.CircuitState
	bm.CircuitState = state

	// Count transitions to open
	if oldState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		bm.CircuitOpens++
	}
}

func (mc *MemoryCollector) RecordMutation(op string, errClass string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.mutations[op] == nil {
		mc.mutations[op] = make(map[string]int64)
	}
	mc.mutations[op][errClass]++
}

// RecordLoad keeps the latest outcome per blob.
func (mc *MemoryCollector) RecordLoad(blob string, outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.loads[blob] = outcome
}

func (mc *MemoryCollector) RecordUndo(outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.undos[outcome]++
}

func (mc *MemoryCollector) RecordBalance(accountID string, balance float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.balances[accountID] = balance
}

// Mutations returns how many times op finished with errClass.
func (mc *MemoryCollector) Mutations(op, errClass string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.mutations[op][errClass]
}

// LoadOutcome returns the last recorded load outcome for blob.
func (mc *MemoryCollector) LoadOutcome(blob string) string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.loads[blob]
}

func (mc *MemoryCollector) Undos(outcome string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return mc.undos[outcome]
}

// Balance returns the last recorded balance for an account.
func (mc *MemoryCollector) Balance(accountID string) (float64, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	b, ok := mc.balances[accountID]
	return b, ok
}

// GetBackendMetrics returns a copy of the metrics for a specific backend.
func (mc *MemoryCollector) GetBackendMetrics(backend string) *BackendMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	bm, exists := mc.backendMetrics[backend]
	if !exists {
		return nil
	}

	cp := *bm
	cp.Operations = maps.Clone(bm.Operations)
	cp.ErrorClasses = maps.Clone(bm.ErrorClasses)
	cp.Latencies = append([]time.Duration(nil), bm.Latencies...)
	return &cp
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.backendMetrics = make(map[string]*BackendMetrics)
	mc.mutations = make(map[string]map[string]int64)
	mc.loads = make(map[string]string)
	mc.undos = make(map[string]int64)
	mc.balances = make(map[string]float64)
}
