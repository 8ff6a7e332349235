package services

import (
	"context"
	"fmt"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
)

// ListGoals returns every goal with its derived progress, newest first.
func (s *LedgerService) ListGoals(ctx context.Context, userID string) ([]core.GoalView, error) {
	var out []core.GoalView
	today := s.today()
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		goals, err := tx.Goals(ctx)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		out = EvaluateGoals(goals, today)
		return nil
	})
	return out, err
}

func (s *LedgerService) GetGoal(ctx context.Context, userID, id string) (core.GoalView, error) {
	var out core.GoalView
	today := s.today()
	err := s.view(ctx, userID, func(tx ledger.Tx) error {
		g, err := tx.Goal(ctx, id)
		if err != nil {
			return err
		}
		out = EvaluateGoal(g, today)
		return nil
	})
	return out, err
}

func (s *LedgerService) CreateGoal(ctx context.Context, userID string, g core.SavingsGoal) (core.GoalView, error) {
	g.ID = s.newID()
	g.CreatedAt = s.now().UTC()
	g.Normalize()
	if err := g.Validate(); err != nil {
		return core.GoalView{}, err
	}
	m := &mutation{entity: events.EntityGoal, op: events.OpCreated, entityID: g.ID}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		return tx.CreateGoal(ctx, g)
	})
	if err != nil {
		return core.GoalView{}, err
	}
	return EvaluateGoal(g, s.today()), nil
}

// UpdateGoal replaces a goal's editable fields, including a manually
// corrected saved amount.
func (s *LedgerService) UpdateGoal(ctx context.Context, userID, id string, g core.SavingsGoal) (core.GoalView, error) {
	g.ID = id
	g.Normalize()
	if err := g.Validate(); err != nil {
		return core.GoalView{}, err
	}
	m := &mutation{entity: events.EntityGoal, op: events.OpUpdated, entityID: id}
	err := s.update(ctx, userID, m, func(tx ledger.Tx) error {
		prev, err := tx.Goal(ctx, id)
		if err != nil {
			return err
		}
		g.CreatedAt = prev.CreatedAt
		return tx.UpdateGoal(ctx, g)
	})
	if err != nil {
		return core.GoalView{}, err
	}
	return EvaluateGoal(g, s.today()), nil
}

// DeleteGoal removes a goal. Expenses that contributed to it stay in the
// ledger with their goal reference cleared.
func (s *LedgerService) DeleteGoal(ctx context.Context, userID, id string) error {
	m := &mutation{entity: events.EntityGoal, op: events.OpDeleted, entityID: id}
	return s.update(ctx, userID, m, func(tx ledger.Tx) error {
		if _, err := tx.Goal(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DetachGoal(ctx, id); err != nil {
			return fmt.Errorf("detach goal: %w", err)
		}
		return tx.DeleteGoal(ctx, id)
	})
}
