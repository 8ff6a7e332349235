// Package ledger defines the per-user ledger store contract shared by the
// in-memory and SQL backends.
package ledger

import (
	"context"

	"paypulse/internal/core"
)

// Ports for the storage adapters.
type (
	// Store hands out transactions bound to a single user's ledger.
	Store interface {
		// View runs fn against a consistent read snapshot.
		View(ctx context.Context, userID string, fn func(Tx) error) error
		// Update runs fn in a read-write transaction serialized per user.
		// Any error returned by fn rolls back every write fn made.
		Update(ctx context.Context, userID string, fn func(Tx) error) error
		Close() error
	}

	// Tx is one user's ledger inside a transaction.
	Tx interface {
		UserID() string
		// Version is the ledger's mutation counter. Inside Update it already
		// reflects the write in progress.
		Version(ctx context.Context) (int64, error)

		CategoryStore
		ExpenseStore
		BudgetStore
		GoalStore

		Settings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) error
	}

	CategoryStore interface {
		// Categories are ordered by name, case-insensitively.
		Categories(ctx context.Context) ([]core.Category, error)
		Category(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
		CategoryUsage(ctx context.Context, id string) (Usage, error)
		// ReassignCategory repoints every expense and budget of from to to.
		ReassignCategory(ctx context.Context, from, to string) error
	}

	ExpenseStore interface {
		// Expenses are ordered by expense date desc, then creation desc.
		Expenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		Expense(ctx context.Context, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) error
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
		// DetachGoal clears the goal reference of every expense pointing at
		// goalID and returns how many were touched.
		DetachGoal(ctx context.Context, goalID string) (int, error)
	}

	BudgetStore interface {
		// Budgets are ordered by start date desc, then creation desc.
		Budgets(ctx context.Context) ([]core.Budget, error)
		Budget(ctx context.Context, id string) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) error
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
	}

	GoalStore interface {
		// Goals are ordered by creation desc.
		Goals(ctx context.Context) ([]core.SavingsGoal, error)
		Goal(ctx context.Context, id string) (core.SavingsGoal, error)
		CreateGoal(ctx context.Context, g core.SavingsGoal) error
		UpdateGoal(ctx context.Context, g core.SavingsGoal) error
		DeleteGoal(ctx context.Context, id string) error
	}
)

// Usage counts the records referencing a category.
type Usage struct {
	Expenses int
	Budgets  int
}

func (u Usage) InUse() bool { return u.Expenses > 0 || u.Budgets > 0 }

// ExpenseFilter narrows Expenses. Zero fields do not filter.
type ExpenseFilter struct {
	From          core.Date
	To            core.Date
	CategoryID    string
	SavingsGoalID string
	Limit         int
}

// MonthFilter returns a filter covering the calendar month of d.
func MonthFilter(d core.Date) ExpenseFilter {
	return ExpenseFilter{From: d.MonthStart(), To: d.MonthEnd()}
}

// Match reports whether e passes the filter's predicates. Limit is not
// applied here.
func (f ExpenseFilter) Match(e core.Expense) bool {
	if !f.From.IsZero() && e.ExpenseDate.IsBefore(f.From) {
		return false
	}
	if !f.To.IsZero() && e.ExpenseDate.IsAfter(f.To) {
		return false
	}
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if f.SavingsGoalID != "" && e.SavingsGoalID != f.SavingsGoalID {
		return false
	}
	return true
}
