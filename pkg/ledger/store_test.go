package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pocket-ledger/pkg/kv"
	"pocket-ledger/pkg/kv/memory"
	"pocket-ledger/pkg/kv/mock"
)

func TestStore_DefaultsBeforeReady(t *testing.T) {
	s := New(memory.NewMemoryStore(memory.MemoryStoreConfig{}), WithNotifier(&Recorder{}))
	defer s.Close()

	if s.State() != Uninitialized {
		t.Fatalf("Expected uninitialized, got %v", s.State())
	}
	if s.Ready() {
		t.Fatal("Store must not be ready before Load")
	}

	if got := len(s.Accounts()); got != 4 {
		t.Errorf("Expected 4 seed accounts before load, got %d", got)
	}
	if got := s.Profile().DisplayName; got != DefaultDisplayName {
		t.Errorf("Expected default profile, got %q", got)
	}
	if len(s.Transactions()) != 0 || len(s.Goals()) != 0 {
		t.Error("Expected empty transactions and goals before load")
	}

	ctx := context.Background()
	if _, err := s.AddTransaction(ctx, A(10), "x", Income, "1"); !errors.Is(err, ErrNotReady) {
		t.Errorf("AddTransaction before ready: expected ErrNotReady, got %v", err)
	}
	if _, err := s.AddGoal(ctx, GoalInput{Name: "x", TargetAmount: A(1), TermValue: 1, TermUnit: Months}); !errors.Is(err, ErrNotReady) {
		t.Errorf("AddGoal before ready: expected ErrNotReady, got %v", err)
	}
	if err := s.UpdateProfile(ctx, "Ana"); !errors.Is(err, ErrNotReady) {
		t.Errorf("UpdateProfile before ready: expected ErrNotReady, got %v", err)
	}
	if err := s.Flush(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Flush before ready: expected ErrNotReady, got %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := s.WaitReady(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected WaitReady to time out, got %v", err)
	}
}

func TestStore_LoadFirstRun(t *testing.T) {
	backend := mock.NewMockStore("mock")
	s := New(backend, WithNotifier(&Recorder{}))
	defer s.Close()

	report, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, br := range report.Blobs() {
		if br.Outcome != OutcomeMissing {
			t.Errorf("%s: expected missing, got %s", br.Blob, br.Outcome)
		}
	}
	if report.Degraded() {
		t.Error("First run must not be degraded")
	}
	if !s.Ready() {
		t.Fatal("Expected ready after Load")
	}
	if err := s.WaitReady(context.Background()); err != nil {
		t.Errorf("WaitReady failed: %v", err)
	}

	accounts := s.Accounts()
	want := []string{"Nubank", "Banco do Brasil", "Bradesco", "Carteira"}
	for i, a := range accounts {
		if a.Name != want[i] || !a.Balance.IsZero() {
			t.Errorf("seed account %d = %+v", i, a)
		}
	}

	if backend.SetCalls() != 0 {
		t.Errorf("Load must not write, got %d sets", backend.SetCalls())
	}
}

func TestStore_LoadOnce(t *testing.T) {
	backend := mock.NewMockStore("mock")
	s := New(backend, WithNotifier(&Recorder{}))
	defer s.Close()

	first, _ := s.Load(context.Background())
	second, _ := s.Load(context.Background())

	if first != second {
		t.Error("Expected the same report from repeated Load calls")
	}
	if backend.GetCalls() != 4 {
		t.Errorf("Expected 4 reads, got %d", backend.GetCalls())
	}
}

func TestStore_LoadReadsBlobsConcurrently(t *testing.T) {
	backend := mock.NewMockStore("mock")
	var arrived sync.WaitGroup
	arrived.Add(len(allBlobs))
	all := make(chan struct{})
	go func() {
		arrived.Wait()
		close(all)
	}()
	backend.GetFunc = func(ctx context.Context, key string) ([]byte, error) {
		arrived.Done()
		select {
		case <-all:
			return nil, kv.ErrKeyNotFound
		case <-time.After(2 * time.Second):
			return nil, errors.New("reads did not overlap")
		}
	}

	s := New(backend, WithNotifier(&Recorder{}))
	defer s.Close()

	report, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, br := range report.Blobs() {
		if br.Outcome != OutcomeMissing {
			t.Errorf("%s: expected missing, got %s", br.Blob, br.Outcome)
		}
	}
}

func TestStore_LoadIsolatesBlobFailures(t *testing.T) {
	accounts, _ := json.Marshal([]Account{{ID: "9", Name: "Inter", BankKind: "inter", Balance: A(42)}})
	backend := mock.NewMockStoreWithData("mock", map[string][]byte{
		"accounts":     accounts,
		"goals":        []byte(`{not json`),
		"transactions": []byte(`[]`),
	})
	backend.GetFunc = func(ctx context.Context, key string) ([]byte, error) {
		if key == BlobProfile {
			return nil, kv.ErrUnavailable
		}
		if data, ok := backend.Stored(key); ok {
			return data, nil
		}
		return nil, kv.ErrKeyNotFound
	}

	notes := &Recorder{}
	s := New(backend, WithNotifier(notes))
	defer s.Close()

	report, err := s.Load(context.Background())
	if !IsPersistence(err) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if !s.Ready() {
		t.Fatal("Store must be ready even when blobs fail")
	}

	if report.Accounts.Outcome != OutcomeLoaded {
		t.Errorf("accounts: expected loaded, got %s", report.Accounts.Outcome)
	}
	if report.Goals.Outcome != OutcomeCorrupt {
		t.Errorf("goals: expected corrupt, got %s", report.Goals.Outcome)
	}
	if report.Profile.Outcome != OutcomeUnavailable {
		t.Errorf("userProfile: expected unavailable, got %s", report.Profile.Outcome)
	}
	if !report.Degraded() {
		t.Error("Expected degraded report")
	}

	if a, ok := s.Account("9"); !ok || !a.Balance.Equal(A(42)) {
		t.Errorf("Expected stored account to load, got %+v", a)
	}
	if len(s.Goals()) != 0 {
		t.Error("Expected default empty goals")
	}
	if s.Profile().DisplayName != DefaultDisplayName {
		t.Error("Expected default profile")
	}

	errorsSeen := 0
	for _, n := range notes.All() {
		if n.Level == LevelError {
			errorsSeen++
		}
	}
	if errorsSeen != 2 {
		t.Errorf("Expected 2 error notifications, got %d", errorsSeen)
	}
}

func TestStore_Scenario_Transactions(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	mustAdd(t, tl.Store, 100, "Salary", Income, "1")
	assertAmount(t, "balance", balanceOf(t, tl.Store, "1"), A(100))
	assertAmount(t, "totalIncome", tl.Summary().TotalIncome, A(100))

	lunch := mustAdd(t, tl.Store, 30, "Lunch", Expense, "1")
	sum := tl.Summary()
	assertAmount(t, "balance", balanceOf(t, tl.Store, "1"), A(70))
	assertAmount(t, "totalExpense", sum.TotalExpense, A(30))
	assertAmount(t, "totalBalance", sum.TotalBalance, A(70))

	if _, err := tl.RemoveTransaction(ctx, lunch.ID); err != nil {
		t.Fatalf("RemoveTransaction failed: %v", err)
	}
	assertAmount(t, "balance after remove", balanceOf(t, tl.Store, "1"), A(100))
}

func TestStore_Scenario_Goal(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	g, err := tl.AddGoal(ctx, GoalInput{Name: "Trip", TargetAmount: A(1000), TermValue: 12, TermUnit: Months, IconTag: "✈"})
	if err != nil {
		t.Fatalf("AddGoal failed: %v", err)
	}
	if !g.Accumulated.IsZero() || len(g.History) != 0 {
		t.Fatalf("New goal must start empty, got %+v", g)
	}

	for i := 0; i < 2; i++ {
		if _, err := tl.AddGoalContribution(ctx, g.ID, A(250)); err != nil {
			t.Fatalf("AddGoalContribution failed: %v", err)
		}
	}

	got, _ := tl.Goal(g.ID)
	assertAmount(t, "accumulated", got.Accumulated, A(500))
	if len(got.History) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(got.History))
	}
	if got.Progress() != 50 {
		t.Errorf("Expected 50%%, got %d", got.Progress())
	}
}

func TestStore_Scenario_LegacyGoal(t *testing.T) {
	backend := memory.NewMemoryStore(memory.MemoryStoreConfig{})
	backend.Set(context.Background(), "goals", []byte(`[{"id":"g1","nome":"Old","valor":500,"gastoAtual":100}]`))

	tl := newTestLedgerOn(t, backend)

	goals := tl.Goals()
	if len(goals) != 1 {
		t.Fatalf("Expected 1 goal, got %d", len(goals))
	}
	g := goals[0]
	if g.ID != "g1" || g.Name != "Old" {
		t.Errorf("Unexpected id/name %q/%q", g.ID, g.Name)
	}
	assertAmount(t, "targetAmount", g.TargetAmount, A(500))
	assertAmount(t, "accumulated", g.Accumulated, A(100))
	if len(g.History) != 0 {
		t.Errorf("Expected empty history, got %v", g.History)
	}
	if tl.metrics.LoadOutcome("goals") != string(OutcomeMigrated) {
		t.Errorf("Expected migrated outcome, got %q", tl.metrics.LoadOutcome("goals"))
	}
}

func TestStore_RoundTrip(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	mustAdd(t, tl.Store, 1500, "Salário", Income, "2")
	tl.clock.Advance(time.Hour)
	mustAdd(t, tl.Store, 89.9, "Mercado", Expense, "4")
	g, _ := tl.AddGoal(ctx, GoalInput{Name: "Reserva", TargetAmount: A(10000), TermValue: 2, TermUnit: Years})
	tl.AddGoalContribution(ctx, g.ID, A(300))
	tl.UpdateProfile(ctx, "  Ana  ")

	s2 := tl.reload(t)

	if got, want := s2.Transactions(), tl.Transactions(); len(got) != len(want) {
		t.Fatalf("Expected %d transactions, got %d", len(want), len(got))
	} else {
		for i := range want {
			if got[i].ID != want[i].ID || !got[i].Amount.Equal(want[i].Amount) || got[i].Kind != want[i].Kind ||
				got[i].Description != want[i].Description || !got[i].OccurredAt.Equal(want[i].OccurredAt) ||
				got[i].DisplayDate != want[i].DisplayDate {
				t.Errorf("transaction %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	}

	for _, a := range tl.Accounts() {
		assertAmount(t, "balance "+a.ID, balanceOf(t, s2, a.ID), a.Balance)
	}

	g2, ok := s2.Goal(g.ID)
	if !ok {
		t.Fatal("Goal lost on reload")
	}
	if g2.Name != "Reserva" || g2.TermUnit != Years || len(g2.History) != 1 {
		t.Errorf("Unexpected goal after reload: %+v", g2)
	}
	assertAmount(t, "accumulated", g2.Accumulated, A(300))

	if s2.Profile().DisplayName != "Ana" {
		t.Errorf("Expected profile Ana, got %q", s2.Profile().DisplayName)
	}
	first, second := s2.Summary(), s2.Summary()
	assertAmount(t, "totalBalance", second.TotalBalance, first.TotalBalance)
	assertAmount(t, "totalIncome", second.TotalIncome, first.TotalIncome)
	assertAmount(t, "totalExpense", second.TotalExpense, first.TotalExpense)
	assertAmount(t, "reloaded totalBalance", first.TotalBalance, tl.Summary().TotalBalance)
}

func TestStore_WritesAffectedBlobsTogether(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	mustAdd(t, tl.Store, 10, "Pix", Income, "1")

	got, err := kv.GetMulti(ctx, tl.kv, []string{"accounts", "transactions", "goals", "userProfile"})
	if err != nil {
		t.Fatalf("GetMulti failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected only accounts and transactions written, got %d blobs", len(got))
	}
	if !strings.Contains(string(got["accounts"]), `"balance":10`) {
		t.Errorf("Balance not persisted: %s", got["accounts"])
	}
}

func TestStore_KeyPrefix(t *testing.T) {
	tl := newTestLedger(t, WithKeyPrefix("alice"))

	mustAdd(t, tl.Store, 10, "Pix", Income, "1")
	if err := tl.UpdateProfile(context.Background(), "Alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := tl.kv.Get(context.Background(), "alice:userProfile"); err != nil {
		t.Errorf("Expected prefixed key, got %v", err)
	}
	if _, err := tl.kv.Get(context.Background(), "userProfile"); !kv.IsNotFound(err) {
		t.Errorf("Unprefixed key must not exist, got %v", err)
	}

	other := tl.reload(t)
	if other.Profile().DisplayName != DefaultDisplayName {
		t.Error("Unprefixed store must not see alice's data")
	}
}

func TestStore_PersistenceFailureKeepsMutation(t *testing.T) {
	backend := mock.NewMockStoreWithData("mock", nil)
	tl := newTestLedgerOn(t, backend)
	ctx := context.Background()

	backend.SetFunc = func(ctx context.Context, key string, value []byte) error {
		return kv.ErrUnavailable
	}

	tx, err := tl.AddTransaction(ctx, A(50), "Freela", Income, "3")
	if !IsPersistence(err) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if !errors.Is(err, kv.ErrUnavailable) {
		t.Error("Expected the kv error to be wrapped")
	}
	if tx.ID == 0 {
		t.Error("Expected the applied transaction to be returned")
	}
	assertAmount(t, "balance", balanceOf(t, tl.Store, "3"), A(50))

	if n, _ := tl.notes.Last(); n.Level != LevelError {
		t.Errorf("Expected error notification, got %+v", n)
	}
	if tl.metrics.Mutations("add_transaction", "persistence") != 1 {
		t.Error("Expected persistence failure metric")
	}

	backend.SetFunc = nil
	if err := tl.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if data, ok := backend.Stored(BlobTransactions); !ok || !strings.Contains(string(data), "Freela") {
		t.Errorf("Expected the transaction in the flushed blob, got %q", data)
	}

	s2 := tl.reload(t)
	assertAmount(t, "reloaded balance", balanceOf(t, s2, "3"), A(50))
}

func TestStore_Notifications(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	tx := mustAdd(t, tl.Store, 10, "a", Income, "1")
	tl.RemoveTransaction(ctx, tx.ID)
	tl.UndoRemove(ctx, tx.ID)
	g, _ := tl.AddGoal(ctx, GoalInput{Name: "g", TargetAmount: A(1), TermValue: 1, TermUnit: Months})
	tl.AddGoalContribution(ctx, g.ID, A(1))
	tl.RemoveGoal(ctx, g.ID)
	tl.UpdateProfile(ctx, "Bia")
	tl.UpdateProfile(ctx, "   ")

	want := []Notification{
		{LevelSuccess, MsgTransactionAdded},
		{LevelSuccess, MsgTransactionRemoved},
		{LevelSuccess, MsgTransactionRestored},
		{LevelSuccess, MsgGoalAdded},
		{LevelSuccess, MsgContributionAdded},
		{LevelSuccess, MsgGoalRemoved},
		{LevelSuccess, MsgProfileUpdated},
		{LevelError, "O nome não pode estar vazio"},
	}

	got := tl.notes.All()
	if len(got) != len(want) {
		t.Fatalf("Expected %d notifications, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "Carla", "Carla", nil},
		{"trimmed", "  Davi ", "Davi", nil},
		{"empty", "", "Davi", ErrEmptyName},
		{"blank", " \t ", "Davi", ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tl.UpdateProfile(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateProfile(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got := tl.Profile().DisplayName; got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{ErrNotReady, "not_ready"},
		{ErrInvalidAmount, "validation"},
		{ErrUnknownAccount, "validation"},
		{ErrUnknownGoal, "not_found"},
		{ErrUndoExpired, "undo_expired"},
		{errors.Join(ErrPersistence, kv.ErrTimeout), "persistence"},
		{context.Canceled, "other"},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
