package services

import (
	"paypulse/internal/core"
)

// EvaluateBudget derives spent, remaining, daily pace and completion for the
// budget's active cycle. Only expenses of the budget's category inside the
// cycle count; callers may pass a wider set. It never fails.
func EvaluateBudget(b core.Budget, expenses []core.Expense, today core.Date) core.BudgetView {
	cycle := CycleResolverFor(b).Resolve(b, today)

	var spent core.Money
	for _, e := range expenses {
		if e.CategoryID == b.CategoryID && cycle.Contains(e.ExpenseDate) {
			spent = spent.Add(e.Amount)
		}
	}
	remaining := b.TotalAmount.Sub(spent)
	days := daysRemaining(cycle, today)

	return core.BudgetView{
		Budget:            b,
		SpentAmount:       spent,
		RemainingAmount:   remaining,
		DailyBudget:       remaining.DivDays(days),
		CompletionPercent: spent.PercentOf(b.TotalAmount),
		CycleStart:        cycle.Start,
		CycleEnd:          cycle.End,
		DaysRemaining:     days,
		Status:            budgetStatus(b, cycle, remaining, today),
	}
}

// daysRemaining counts the inclusive days left in the cycle, never fewer than
// one. Before the cycle starts the whole cycle counts; after it ends only the
// last day does.
func daysRemaining(c Cycle, today core.Date) int {
	from := today
	if from.IsBefore(c.Start) {
		from = c.Start
	}
	if from.IsAfter(c.End) {
		from = c.End
	}
	if n := from.DaysUntil(c.End) + 1; n > 1 {
		return n
	}
	return 1
}

func budgetStatus(b core.Budget, c Cycle, remaining core.Money, today core.Date) core.Status {
	switch {
	case remaining.IsNegative():
		return core.StatusOverspent
	case !b.RecurringMonthly && today.IsAfter(c.End):
		return core.StatusCompleted
	default:
		return core.StatusOnTrack
	}
}
