package ledger

import (
	"context"
	"testing"
	"time"

	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/kv/memory"
	metricsmem "pocket-ledger/pkg/metrics/memory"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.October, 18, 9, 30, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testLedger struct {
	*Store
	kv      kv.Store
	clock   *fakeClock
	notes   *Recorder
	metrics *metricsmem.MemoryCollector
}

// newTestLedger returns a loaded Store on a fresh memory backend.
func newTestLedger(t *testing.T, opts ...Option) *testLedger {
	t.Helper()
	return newTestLedgerOn(t, memory.NewMemoryStore(memory.MemoryStoreConfig{}), opts...)
}

func newTestLedgerOn(t *testing.T, backend kv.Store, opts ...Option) *testLedger {
	t.Helper()

	tl := &testLedger{
		kv:      backend,
		clock:   newFakeClock(),
		notes:   &Recorder{},
		metrics: metricsmem.NewMemoryCollector(),
	}
	all := append([]Option{
		WithClock(tl.clock.Now),
		WithNotifier(tl.notes),
		WithMetrics(tl.metrics),
	}, opts...)

	tl.Store = New(backend, all...)
	if _, err := tl.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(tl.Close)
	return tl
}

// reload opens a second Store on the same backend.
func (tl *testLedger) reload(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(tl.kv, append([]Option{WithNotifier(&Recorder{})}, opts...)...)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustAdd(t *testing.T, s *Store, amount float64, desc string, kind TransactionKind, account string) Transaction {
	t.Helper()
	tx, err := s.AddTransaction(context.Background(), A(amount), desc, kind, account)
	if err != nil {
		t.Fatalf("AddTransaction(%v, %q) failed: %v", amount, desc, err)
	}
	return tx
}

func balanceOf(t *testing.T, s *Store, id string) Amount {
	t.Helper()
	a, ok := s.Account(id)
	if !ok {
		t.Fatalf("account %q not found", id)
	}
	return a.Balance
}

func assertAmount(t *testing.T, name string, got, want Amount) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
