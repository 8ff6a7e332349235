package services

import (
	"context"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
)

// ListBudgets returns every budget evaluated over its active cycle, newest
// start date first.
func (s *LedgerService) ListBudgets(ctx context.Context, userID string) ([]core.BudgetView, error) {
	var out []core.BudgetView
	today := s.today()
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		cats, err := categoryIndex(ctx, tx)
		if err != nil {
			return err
		}
		out, err = budgetViews(ctx, tx, cats, today)
		return err
	})
	return out, err
}

func (s *LedgerService) GetBudget(ctx context.Context, userID, id string) (core.BudgetView, error) {
	var out core.BudgetView
	today := s.today()
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		b, err := tx.Budget(ctx, id)
		if err != nil {
			return err
		}
		out, err = s.evaluateBudget(ctx, tx, b, today)
		return err
	})
	return out, err
}

func (s *LedgerService) CreateBudget(ctx context.Context, userID string, b core.Budget) (core.BudgetView, error) {
	b.ID = s.newID()
	b.CreatedAt = s.now().UTC()
	b.Normalize()
	if err := b.Validate(); err != nil {
		return core.BudgetView{}, err
	}
	var out core.BudgetView
	today := s.today()
	m := &mutation{entity: events.EntityBudget, op: events.OpCreated, entityID: b.ID}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		if err := tx.CreateBudget(ctx, b); err != nil {
			return err
		}
		var err error
		out, err = s.evaluateBudget(ctx, tx, b, today)
		return err
	})
	return out, err
}

func (s *LedgerService) UpdateBudget(ctx context.Context, userID, id string, b core.Budget) (core.BudgetView, error) {
	b.ID = id
	b.Normalize()
	if err := b.Validate(); err != nil {
		return core.BudgetView{}, err
	}
	var out core.BudgetView
	today := s.today()
	m := &mutation{entity: events.EntityBudget, op: events.OpUpdated, entityID: id}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		prev, err := tx.Budget(ctx, id)
		if err != nil {
			return err
		}
		b.CreatedAt = prev.CreatedAt
		if err := tx.UpdateBudget(ctx, b); err != nil {
			return err
		}
		out, err = s.evaluateBudget(ctx, tx, b, today)
		return err
	})
	return out, err
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID, id string) error {
	m := &mutation{entity: events.EntityBudget, op: events.OpDeleted, entityID: id}
	return s.update(ctx, userID, m, func(tx ledger.Tx) error {
		return tx.DeleteBudget(ctx, id)
	})
}

func (s *LedgerService) evaluateBudget(ctx context.Context, tx ledger.Tx, b core.Budget, today core.Date) (core.BudgetView, error) {
	cat, err := tx.Category(ctx, b.CategoryID)
	if err != nil {
		return core.BudgetView{}, err
	}
	return budgetView(ctx, tx, b, map[string]core.Category{cat.ID: cat}, today)
}
