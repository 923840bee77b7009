package ledger

import (
	"context"
	"strings"
	"time"
)

// UpdateProfile replaces the display name. Surrounding whitespace is removed.
func (s *Store) UpdateProfile(ctx context.Context, name string) error {
	start := time.Now()
	err := s.updateProfile(ctx, name)
	s.finish("update_profile", start, err, MsgProfileUpdated)
	return err
}

func (s *Store) updateProfile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.profile = UserProfile{DisplayName: name}
	return s.persist(ctx, BlobProfile)
}

// Profile returns the user profile. Before Load it holds the default display name.
func (s *Store) Profile() UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Summary totals account balances and transaction amounts by kind.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, a := range s.accounts {
		sum.TotalBalance = sum.TotalBalance.Add(a.Balance)
	}
	for _, t := range s.transactions {
		switch t.Kind {
		case Income:
			sum.TotalIncome = sum.TotalIncome.Add(t.Amount)
		case Expense:
			sum.TotalExpense = sum.TotalExpense.Add(t.Amount)
		}
	}
	return sum
}
