// Package services provides the ledger's business logic: evaluators that
// derive budget and goal metrics, the dashboard aggregation and the mutation
// coordinator.
//
// This file implements the Strategy Pattern for resolving a budget's active
// cycle. Fixed windows and monthly rollover each have their own resolver.
package services

import (
	"paypulse/internal/core"
)

// Cycle is a concrete, inclusive date window a budget is measured against.
type Cycle struct {
	Start core.Date
	End   core.Date
}

func (c Cycle) Contains(d core.Date) bool { return d.Within(c.Start, c.End) }

// CycleResolver is the strategy interface for finding a budget's active cycle.
type CycleResolver interface {
	// Resolve returns the cycle the budget is measured against on today.
	Resolve(b core.Budget, today core.Date) Cycle
}

// FixedWindow measures a budget against its stored window, whether or not
// today falls inside it.
type FixedWindow struct{}

func (FixedWindow) Resolve(b core.Budget, _ core.Date) Cycle {
	return Cycle{Start: b.StartDate, End: b.EndDate}
}

// MonthlyRollover advances the stored window by whole calendar months to the
// latest cycle that started on or before today.
type MonthlyRollover struct{}

// Resolve keeps the template's day of month, clamped to the target month.
// A template ending on a month end keeps ending on the month end.
func (MonthlyRollover) Resolve(b core.Budget, today core.Date) Cycle {
	if today.IsBefore(b.StartDate) {
		return Cycle{Start: b.StartDate, End: b.EndDate}
	}
	k := b.StartDate.MonthsBetween(today)
	if b.StartDate.AddMonthsClamped(k).IsAfter(today) {
		k--
	}
	return Cycle{Start: b.StartDate.AddMonthsClamped(k), End: shiftEnd(b.EndDate, k)}
}

func shiftEnd(end core.Date, months int) core.Date {
	shifted := end.AddMonthsClamped(months)
	if end.IsMonthEnd() {
		return shifted.MonthEnd()
	}
	return shifted
}

// CycleResolverFor picks the strategy for a budget.
func CycleResolverFor(b core.Budget) CycleResolver {
	if b.RecurringMonthly {
		return MonthlyRollover{}
	}
	return FixedWindow{}
}
