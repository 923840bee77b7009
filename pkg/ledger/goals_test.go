package ledger

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

func TestAddGoal_Validation(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	valid := GoalInput{Name: "Casa", TargetAmount: A(50000), TermValue: 5, TermUnit: Years, IconTag: "🏠"}

	tests := []struct {
		name    string
		mutate  func(in *GoalInput)
		wantErr error
	}{
		{"empty name", func(in *GoalInput) { in.Name = "  " }, ErrEmptyName},
		{"zero target", func(in *GoalInput) { in.TargetAmount = Zero }, ErrInvalidAmount},
		{"negative target", func(in *GoalInput) { in.TargetAmount = A(-1) }, ErrInvalidAmount},
		{"zero term", func(in *GoalInput) { in.TermValue = 0 }, ErrInvalidTerm},
		{"bad unit", func(in *GoalInput) { in.TermUnit = "weeks" }, ErrInvalidTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			if _, err := tl.AddGoal(ctx, in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if len(tl.Goals()) != 0 {
		t.Fatal("Rejected goals must not be stored")
	}

	g, err := tl.AddGoal(ctx, valid)
	if err != nil {
		t.Fatalf("AddGoal failed: %v", err)
	}
	if g.ID == "" || g.SchemaVersion != CurrentGoalSchema || !g.CarriedOver.IsZero() {
		t.Errorf("Unexpected new goal %+v", g)
	}
}

func TestAddGoal_DefaultIconAndOrder(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	first, _ := tl.AddGoal(ctx, GoalInput{Name: "A", TargetAmount: A(1), TermValue: 1, TermUnit: Months})
	second, _ := tl.AddGoal(ctx, GoalInput{Name: "B", TargetAmount: A(1), TermValue: 1, TermUnit: Months})

	if first.IconTag != DefaultGoalIcon {
		t.Errorf("Expected default icon, got %q", first.IconTag)
	}

	goals := tl.Goals()
	if goals[0].ID != first.ID || goals[1].ID != second.ID {
		t.Error("Goals must keep creation order")
	}
}

func TestAddGoalContribution(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	g, _ := tl.AddGoal(ctx, GoalInput{Name: "Viagem", TargetAmount: A(1000), TermValue: 6, TermUnit: Months})

	if _, err := tl.AddGoalContribution(ctx, g.ID, A(-50)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Negative contribution: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := tl.AddGoalContribution(ctx, g.ID, Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Zero contribution: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := tl.AddGoalContribution(ctx, "nope", A(10)); !errors.Is(err, ErrUnknownGoal) || !IsNotFound(err) {
		t.Errorf("Unknown goal: expected ErrUnknownGoal, got %v", err)
	}

	c1, _ := tl.AddGoalContribution(ctx, g.ID, A(100))
	tl.clock.Advance(1)
	c2, _ := tl.AddGoalContribution(ctx, g.ID, A(50))

	got, _ := tl.Goal(g.ID)
	if len(got.History) != 2 || got.History[0].ID != c2.ID || got.History[1].ID != c1.ID {
		t.Errorf("Expected most recent contribution first, got %+v", got.History)
	}
	assertAmount(t, "accumulated", got.Accumulated, A(150))
	assertAmount(t, "TotalSaved", tl.TotalSaved(), A(150))
}

func TestGoals_ReturnsCopies(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	g, _ := tl.AddGoal(ctx, GoalInput{Name: "X", TargetAmount: A(10), TermValue: 1, TermUnit: Months})
	tl.AddGoalContribution(ctx, g.ID, A(1))

	goals := tl.Goals()
	goals[0].History[0].Amount = A(999)
	goals[0].Name = "mutated"

	again, _ := tl.Goal(g.ID)
	if again.Name != "X" || !again.History[0].Amount.Equal(A(1)) {
		t.Error("Caller mutation leaked into the store")
	}
}

func TestRemoveGoal(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	g, _ := tl.AddGoal(ctx, GoalInput{Name: "X", TargetAmount: A(10), TermValue: 1, TermUnit: Months})
	tl.AddGoalContribution(ctx, g.ID, A(3))

	if err := tl.RemoveGoal(ctx, g.ID); err != nil {
		t.Fatalf("RemoveGoal failed: %v", err)
	}
	if _, ok := tl.Goal(g.ID); ok {
		t.Error("Goal still present")
	}
	if err := tl.RemoveGoal(ctx, g.ID); !errors.Is(err, ErrUnknownGoal) {
		t.Errorf("Second remove: expected ErrUnknownGoal, got %v", err)
	}
	if !tl.TotalSaved().IsZero() {
		t.Error("Removed goal still counted")
	}

	if len(tl.reload(t).Goals()) != 0 {
		t.Error("Removal not persisted")
	}
}

func TestGoal_Progress(t *testing.T) {
	tests := []struct {
		name        string
		accumulated Amount
		target      Amount
		want        int
	}{
		{"empty", Zero, A(1000), 0},
		{"half", A(500), A(1000), 50},
		{"rounds", A(333), A(1000), 33},
		{"rounds up", A(335), A(1000), 34},
		{"capped", A(5000), A(1000), 100},
		{"zero target", A(0.5), Zero, 50},
		{"zero target capped", A(7), Zero, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Accumulated: tt.accumulated, TargetAmount: tt.target}
			if got := g.Progress(); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
			if !g.TargetAmount.Equal(tt.target) {
				t.Error("Progress must not change the target")
			}
		})
	}
}

// Accumulated must equal the history sum after any sequence of contributions.
func TestGoalSumInvariant(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	var ids []string
	for i := 0; i < 3; i++ {
		g, err := tl.AddGoal(ctx, GoalInput{Name: "g", TargetAmount: A(1000), TermValue: 1, TermUnit: Months})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, g.ID)
	}

	for i := 0; i < 200; i++ {
		amount := A(A(int64(rng.Intn(50000) + 1)).Decimal().Shift(-2))
		if _, err := tl.AddGoalContribution(ctx, ids[rng.Intn(len(ids))], amount); err != nil {
			t.Fatal(err)
		}
	}

	check := func(goals []Goal) {
		t.Helper()
		for _, g := range goals {
			if !g.Accumulated.Equal(g.historySum()) {
				t.Errorf("goal %s: accumulated %s, history sum %s", g.ID, g.Accumulated, g.historySum())
			}
		}
	}
	check(tl.Goals())
	check(tl.reload(t).Goals())
}
