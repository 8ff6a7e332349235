package services

import (
	"context"
	"fmt"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

// categoryIndex loads the user's categories keyed by id.
func categoryIndex(ctx context.Context, tx ledger.Tx) (map[string]core.Category, error) {
	cats, err := tx.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx, nil
}

func expenseView(e core.Expense, cats map[string]core.Category) core.ExpenseView {
	c := cats[e.CategoryID]
	return core.ExpenseView{Expense: e, CategoryName: c.Name, CategoryColor: c.ColorHex}
}

func expenseViews(es []core.Expense, cats map[string]core.Category) []core.ExpenseView {
	out := make([]core.ExpenseView, 0, len(es))
	for _, e := range es {
		out = append(out, expenseView(e, cats))
	}
	return out
}

// budgetView evaluates one budget, loading only the expenses of its category
// inside its active cycle.
func budgetView(ctx context.Context, tx ledger.Tx, b core.Budget, cats map[string]core.Category, today core.Date) (core.BudgetView, error) {
	cycle := CycleResolverFor(b).Resolve(b, today)
	es, err := tx.Expenses(ctx, ledger.ExpenseFilter{From: cycle.Start, To: cycle.End, CategoryID: b.CategoryID})
	if err != nil {
		return core.BudgetView{}, fmt.Errorf("load budget expenses: %w", err)
	}
	v := EvaluateBudget(b, es, today)
	v.CategoryName = cats[b.CategoryID].Name
	return v, nil
}

func budgetViews(ctx context.Context, tx ledger.Tx, cats map[string]core.Category, today core.Date) ([]core.BudgetView, error) {
	budgets, err := tx.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.BudgetView, 0, len(budgets))
	for _, b := range budgets {
		v, err := budgetView(ctx, tx, b, cats, today)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
