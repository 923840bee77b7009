package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pocket-ledger/pkg/logging"

	"go.uber.org/zap"
)

// AddGoal creates a goal with nothing accumulated. An empty IconTag gets the default icon.
func (s *Store) AddGoal(ctx context.Context, in GoalInput) (Goal, error) {
	start := time.Now()
	g, err := s.addGoal(ctx, in)
	s.finish("add_goal", start, err, MsgGoalAdded)
	return g, err
}

func (s *Store) addGoal(ctx context.Context, in GoalInput) (Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return Goal{}, err
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return Goal{}, ErrEmptyName
	case !in.TargetAmount.IsPositive():
		return Goal{}, ErrInvalidAmount
	case in.TermValue <= 0 || !in.TermUnit.Valid():
		return Goal{}, fmt.Errorf("%w: %d %q", ErrInvalidTerm, in.TermValue, in.TermUnit)
	}

	icon := strings.TrimSpace(in.IconTag)
	if icon == "" {
		icon = DefaultGoalIcon
	}

	g := Goal{
		ID:            s.newID(),
		Name:          name,
		TargetAmount:  in.TargetAmount,
		TermValue:     in.TermValue,
		TermUnit:      in.TermUnit,
		IconTag:       icon,
		History:       []GoalContribution{},
		SchemaVersion: CurrentGoalSchema,
	}
	s.goals = append(s.goals, g)

	s.logger.Debug("goal added", logging.GoalID(g.ID), zap.Stringer("target", g.TargetAmount))

	return g.clone(), s.persist(ctx, BlobGoals)
}

// AddGoalContribution puts amount toward a goal. Only positive amounts are accepted;
// there is no way to withdraw from a goal.
func (s *Store) AddGoalContribution(ctx context.Context, goalID string, amount Amount) (GoalContribution, error) {
	start := time.Now()
	c, err := s.addGoalContribution(ctx, goalID, amount)
	s.finish("add_goal_contribution", start, err, MsgContributionAdded)
	return c, err
}

func (s *Store) addGoalContribution(ctx context.Context, goalID string, amount Amount) (GoalContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return GoalContribution{}, err
	}
	if !amount.IsPositive() {
		return GoalContribution{}, ErrInvalidAmount
	}
	idx := s.goalIndex(goalID)
	if idx < 0 {
		return GoalContribution{}, fmt.Errorf("%w: %q", ErrUnknownGoal, goalID)
	}

	c := GoalContribution{ID: s.newID(), OccurredAt: s.now(), Amount: amount}

	g := &s.goals[idx]
	g.History = append([]GoalContribution{c}, g.History...)
	g.Accumulated = g.Accumulated.Add(amount)

	return c, s.persist(ctx, BlobGoals)
}

// RemoveGoal deletes a goal and its history. It cannot be undone.
func (s *Store) RemoveGoal(ctx context.Context, goalID string) error {
	start := time.Now()
	err := s.removeGoal(ctx, goalID)
	s.finish("remove_goal", start, err, MsgGoalRemoved)
	return err
}

func (s *Store) removeGoal(ctx context.Context, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return err
	}
	idx := s.goalIndex(goalID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownGoal, goalID)
	}

	s.goals = append(s.goals[:idx:idx], s.goals[idx+1:]...)
	return s.persist(ctx, BlobGoals)
}

func (s *Store) goalIndex(id string) int {
	for i, g := range s.goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// Goals returns copies of all goals in creation order.
func (s *Store) Goals() []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Goal, len(s.goals))
	for i, g := range s.goals {
		out[i] = g.clone()
	}
	return out
}

// Goal returns a copy of the goal with the given id, history included.
func (s *Store) Goal(id string) (Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.goalIndex(id); idx >= 0 {
		return s.goals[idx].clone(), true
	}
	return Goal{}, false
}

// TotalSaved is the sum of what has been accumulated across all goals.
func (s *Store) TotalSaved() Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := Zero
	for _, g := range s.goals {
		total = total.Add(g.Accumulated)
	}
	return total
}
