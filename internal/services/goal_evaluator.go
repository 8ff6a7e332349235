package services

import (
	"paypulse/internal/core"
)

// EvaluateGoal derives remaining amount, progress and the daily saving pace
// of a goal. Goals without a target date have no pace. It never fails.
func EvaluateGoal(g core.SavingsGoal, today core.Date) core.GoalView {
	remaining := g.TargetAmount.Sub(g.SavedAmount).Max(core.Money{})
	v := core.GoalView{
		SavingsGoal:     g,
		RemainingAmount: remaining,
		ProgressPercent: g.SavedAmount.PercentOf(g.TargetAmount),
		Status:          goalStatus(g, today),
	}
	if g.TargetDate != nil {
		days := today.DaysUntil(*g.TargetDate)
		if days < 0 {
			days = 0
		}
		daily := remaining.DivDays(days)
		v.DaysLeft = &days
		v.DailyAmountNeeded = &daily
	}
	return v
}

func goalStatus(g core.SavingsGoal, today core.Date) core.Status {
	switch {
	case g.SavedAmount.Cmp(g.TargetAmount) >= 0:
		return core.StatusCompleted
	case g.TargetDate != nil && g.TargetDate.IsBefore(today):
		return core.StatusOverdue
	default:
		return core.StatusOnTrack
	}
}

// GoalIsActive reports whether a goal still has time left: undated goals and
// goals whose target is after today.
func GoalIsActive(g core.SavingsGoal, today core.Date) bool {
	return g.TargetDate == nil || today.IsBefore(*g.TargetDate)
}

func EvaluateGoals(goals []core.SavingsGoal, today core.Date) []core.GoalView {
	out := make([]core.GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, EvaluateGoal(g, today))
	}
	return out
}
