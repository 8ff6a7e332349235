package services

import (
	"context"
	"fmt"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
)

func (s *LedgerService) ListExpenses(ctx context.Context, userID string, f ledger.ExpenseFilter) ([]core.ExpenseView, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.IsBefore(f.From) {
		return nil, core.Validation("to must not be before from")
	}
	if f.Limit < 0 {
		return nil, core.Validation("limit must not be negative")
	}
	var out []core.ExpenseView
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		cats, err := categoryIndex(ctx, tx)
		if err != nil {
			return err
		}
		es, err := tx.Expenses(ctx, f)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		out = expenseViews(es, cats)
		return nil
	})
	return out, err
}

func (s *LedgerService) GetExpense(ctx context.Context, userID, id string) (core.ExpenseView, error) {
	var out core.ExpenseView
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		e, err := tx.Expense(ctx, id)
		if err != nil {
			return err
		}
		c, err := tx.Category(ctx, e.CategoryID)
		if err != nil {
			return err
		}
		out = core.ExpenseView{Expense: e, CategoryName: c.Name, CategoryColor: c.ColorHex}
		return nil
	})
	return out, err
}

// CreateExpense records an expense. When it names a savings goal, the goal is
// credited with the amount in the same transaction.
func (s *LedgerService) CreateExpense(ctx context.Context, userID string, e core.Expense) (core.ExpenseView, error) {
	e.ID = s.newID()
	e.CreatedAt = s.now().UTC()
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.ExpenseView{}, err
	}

	var out core.ExpenseView
	m := &mutation{entity: events.EntityExpense, op: events.OpCreated, entityID: e.ID, months: []string{e.ExpenseDate.MonthKey()}}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		cat, err := contributionCategory(ctx, tx, e)
		if err != nil {
			return err
		}
		if e.HasGoal() {
			if err := adjustGoal(ctx, tx, e.SavingsGoalID, e.Amount); err != nil {
				return err
			}
		}
		if err := tx.CreateExpense(ctx, e); err != nil {
			return err
		}
		out = core.ExpenseView{Expense: e, CategoryName: cat.Name, CategoryColor: cat.ColorHex}
		return nil
	})
	return out, err
}

// UpdateExpense corrects an expense and moves its goal contribution: the old
// goal is debited and the new one credited, or the difference is applied when
// the goal is unchanged.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, id string, e core.Expense) (core.ExpenseView, error) {
	e.ID = id
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.ExpenseView{}, err
	}

	var out core.ExpenseView
	m := &mutation{entity: events.EntityExpense, op: events.OpUpdated, entityID: id}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		prev, err := tx.Expense(ctx, id)
		if err != nil {
			return err
		}
		e.CreatedAt = prev.CreatedAt
		cat, err := contributionCategory(ctx, tx, e)
		if err != nil {
			return err
		}

		switch {
		case prev.HasGoal() && prev.SavingsGoalID == e.SavingsGoalID:
			if err := adjustGoal(ctx, tx, e.SavingsGoalID, e.Amount.Sub(prev.Amount)); err != nil {
				return err
			}
		default:
			if prev.HasGoal() {
				if err := adjustGoal(ctx, tx, prev.SavingsGoalID, core.Money{}.Sub(prev.Amount)); err != nil {
					return err
				}
			}
			if e.HasGoal() {
				if err := adjustGoal(ctx, tx, e.SavingsGoalID, e.Amount); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateExpense(ctx, e); err != nil {
			return err
		}
		m.months = []string{prev.ExpenseDate.MonthKey(), e.ExpenseDate.MonthKey()}
		out = core.ExpenseView{Expense: e, CategoryName: cat.Name, CategoryColor: cat.ColorHex}
		return nil
	})
	return out, err
}

// DeleteExpense removes an expense and reverts its goal contribution.
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id string) error {
	m := &mutation{entity: events.EntityExpense, op: events.OpDeleted, entityID: id}
	return s.update(ctx, userID, m, func(tx ledger.Tx) error {
		prev, err := tx.Expense(ctx, id)
		if err != nil {
			return err
		}
		if prev.HasGoal() {
			if err := adjustGoal(ctx, tx, prev.SavingsGoalID, core.Money{}.Sub(prev.Amount)); err != nil {
				return err
			}
		}
		m.months = []string{prev.ExpenseDate.MonthKey()}
		return tx.DeleteExpense(ctx, id)
	})
}

// contributionCategory loads e's category and checks that it may carry a goal
// contribution.
func contributionCategory(ctx context.Context, tx ledger.Tx, e core.Expense) (core.Category, error) {
	cat, err := tx.Category(ctx, e.CategoryID)
	if err != nil {
		return core.Category{}, err
	}
	if e.HasGoal() && !cat.LinksToSavingsGoals {
		return core.Category{}, core.Validation("category %q does not accept savings goal contributions", cat.Name)
	}
	return cat, nil
}

// adjustGoal adds delta to a goal's saved amount, flooring at zero.
func adjustGoal(ctx context.Context, tx ledger.Tx, goalID string, delta core.Money) error {
	if delta.IsZero() {
		return nil
	}
	g, err := tx.Goal(ctx, goalID)
	if err != nil {
		return err
	}
	g.SavedAmount = g.SavedAmount.Add(delta).Max(core.Money{})
	if err := tx.UpdateGoal(ctx, g); err != nil {
		return fmt.Errorf("adjust goal %s: %w", goalID, err)
	}
	return nil
}
