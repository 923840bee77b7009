package memory

import (
	"sync"
	"testing"
	"time"

	"pocket-ledger/pkg/metrics"
)

func TestMemoryCollector_Storage(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordStorage("sqlite", "get", metrics.ClassNone, time.Millisecond)
	mc.RecordStorage("sqlite", "get", metrics.ClassNone, time.Millisecond)
	mc.RecordStorage("sqlite", "set_multi", "unavailable", time.Millisecond)

	bm := mc.GetBackendMetrics("sqlite")
	if bm == nil {
		t.Fatal("Expected metrics for sqlite")
	}
	if bm.Operations["get"] != 2 {
		t.Errorf("Expected 2 gets, got %d", bm.Operations["get"])
	}
	if bm.Errors != 1 || bm.ErrorClasses["unavailable"] != 1 {
		t.Errorf("Expected 1 unavailable error, got %d %v", bm.Errors, bm.ErrorClasses)
	}
	if len(bm.Latencies) != 3 {
		t.Errorf("Expected 3 latencies, got %d", len(bm.Latencies))
	}

	if mc.GetBackendMetrics("redis") != nil {
		t.Error("Expected nil for unknown backend")
	}
}

func TestMemoryCollector_CircuitOpens(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordCircuitState("redis", metrics.CircuitOpen)
	mc.RecordCircuitState("redis", metrics.CircuitOpen)
	mc.RecordCircuitState("redis", metrics.CircuitHalfOpen)
	mc.RecordCircuitState("redis", metrics.CircuitOpen)

	bm := mc.GetBackendMetrics("redis")
	if bm.CircuitOpens != 2 {
		t.Errorf("Expected 2 opens, got %d", bm.CircuitOpens)
	}
	if bm.CircuitState != metrics.CircuitOpen {
		t.Errorf("Expected open state, got %v", bm.CircuitState)
	}
}

func TestMemoryCollector_Ledger(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordMutation("add_goal", "none", 0)
	mc.RecordMutation("add_goal", "validation", 0)
	mc.RecordMutation("add_goal", "none", 0)
	mc.RecordLoad("goals", "missing")
	mc.RecordLoad("goals", "migrated")
	mc.RecordUndo("restored")
	mc.RecordBalance("4", -12.5)

	if got := mc.Mutations("add_goal", "none"); got != 2 {
		t.Errorf("Expected 2 successful mutations, got %d", got)
	}
	if got := mc.LoadOutcome("goals"); got != "migrated" {
		t.Errorf("Expected last outcome migrated, got %q", got)
	}
	if got := mc.Undos("restored"); got != 1 {
		t.Errorf("Expected 1 restored undo, got %d", got)
	}
	if b, ok := mc.Balance("4"); !ok || b != -12.5 {
		t.Errorf("Expected balance -12.5, got %v (%v)", b, ok)
	}

	mc.Reset()
	if _, ok := mc.Balance("4"); ok {
		t.Error("Expected balances cleared after Reset")
	}
}

func TestMemoryCollector_Concurrent(t *testing.T) {
	mc := NewMemoryCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mc.RecordStorage("memory", "set", metrics.ClassNone, time.Microsecond)
			mc.RecordMutation("add_transaction", "none", time.Microsecond)
		}()
	}
	wg.Wait()

	if got := mc.GetBackendMetrics("memory").Operations["set"]; got != 50 {
		t.Errorf("Expected 50 sets, got %d", got)
	}
	if got := mc.Mutations("add_transaction", "none"); got != 50 {
		t.Errorf("Expected 50 mutations, got %d", got)
	}
}
