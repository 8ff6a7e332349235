package memory

import (
	"context"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

type tx struct {
	userID   string
	book     *book
	readOnly bool
}

func (t *tx) UserID() string { return t.userID }

func (t *tx) Version(context.Context) (int64, error) { return t.book.version, nil }

func (t *tx) writable() error {
	if t.readOnly {
		return ledger.ErrReadOnly
	}
	return nil
}

// Categories

func (t *tx) Categories(context.Context) ([]core.Category, error) {
	out := make([]core.Category, 0, len(t.book.categories))
	for _, c := range t.book.categories {
		out = append(out, c)
	}
	ledger.SortCategories(out)
	return out, nil
}

func (t *tx) Category(_ context.Context, id string) (core.Category, error) {
	c, ok := t.book.categories[id]
	if !ok {
		return core.Category{}, core.NotFound("category %s not found", id)
	}
	return c, nil
}

func (t *tx) CreateCategory(ctx context.Context, c core.Category) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.book.categories[c.ID]; ok {
		return core.Conflict("category %s already exists", c.ID)
	}
	return t.putCategory(ctx, c)
}

func (t *tx) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, c.ID); err != nil {
		return err
	}
	return t.putCategory(ctx, c)
}

func (t *tx) putCategory(ctx context.Context, c core.Category) error {
	all, _ := t.Categories(ctx)
	if err := ledger.CheckCategoryName(all, c); err != nil {
		return err
	}
	t.book.categories[c.ID] = c
	return nil
}

func (t *tx) DeleteCategory(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, id); err != nil {
		return err
	}
	usage, _ := t.CategoryUsage(ctx, id)
	if usage.InUse() {
		return core.Conflict("category %s is still referenced", id)
	}
	delete(t.book.categories, id)
	return nil
}

func (t *tx) CategoryUsage(_ context.Context, id string) (ledger.Usage, error) {
	var u ledger.Usage
	for _, e := range t.book.expenses {
		if e.CategoryID == id {
			u.Expenses++
		}
	}
	for _, b := range t.book.budgets {
		if b.CategoryID == id {
			u.Budgets++
		}
	}
	return u, nil
}

func (t *tx) ReassignCategory(ctx context.Context, from, to string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, to); err != nil {
		return err
	}
	for id, e := range t.book.expenses {
		if e.CategoryID == from {
			e.CategoryID = to
			t.book.expenses[id] = e
		}
	}
	for id, b := range t.book.budgets {
		if b.CategoryID == from {
			b.CategoryID = to
			t.book.budgets[id] = b
		}
	}
	return nil
}

// Expenses

func (t *tx) Expenses(_ context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	out := make([]core.Expense, 0)
	for _, e := range t.book.expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	ledger.SortExpenses(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) Expense(_ context.Context, id string) (core.Expense, error) {
	e, ok := t.book.expenses[id]
	if !ok {
		return core.Expense{}, core.NotFound("expense %s not found", id)
	}
	return e, nil
}

func (t *tx) CreateExpense(ctx context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.book.expenses[e.ID]; ok {
		return core.Conflict("expense %s already exists", e.ID)
	}
	return t.putExpense(ctx, e)
}

func (t *tx) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Expense(ctx, e.ID); err != nil {
		return err
	}
	return t.putExpense(ctx, e)
}

func (t *tx) putExpense(ctx context.Context, e core.Expense) error {
	if _, err := t.Category(ctx, e.CategoryID); err != nil {
		return err
	}
	if e.HasGoal() {
		if _, err := t.Goal(ctx, e.SavingsGoalID); err != nil {
			return err
		}
	}
	t.book.expenses[e.ID] = e
	return nil
}

func (t *tx) DeleteExpense(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Expense(ctx, id); err != nil {
		return err
	}
	delete(t.book.expenses, id)
	return nil
}

func (t *tx) DetachGoal(_ context.Context, goalID string) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	n := 0
	for id, e := range t.book.expenses {
		if e.SavingsGoalID == goalID {
			e.SavingsGoalID = ""
			t.book.expenses[id] = e
			n++
		}
	}
	return n, nil
}

// Budgets

func (t *tx) Budgets(context.Context) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(t.book.budgets))
	for _, b := range t.book.budgets {
		out = append(out, b)
	}
	ledger.SortBudgets(out)
	return out, nil
}

func (t *tx) Budget(_ context.Context, id string) (core.Budget, error) {
	b, ok := t.book.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFound("budget %s not found", id)
	}
	return b, nil
}

func (t *tx) CreateBudget(ctx context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.book.budgets[b.ID]; ok {
		return core.Conflict("budget %s already exists", b.ID)
	}
	return t.putBudget(ctx, b)
}

func (t *tx) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Budget(ctx, b.ID); err != nil {
		return err
	}
	return t.putBudget(ctx, b)
}

func (t *tx) putBudget(ctx context.Context, b core.Budget) error {
	if _, err := t.Category(ctx, b.CategoryID); err != nil {
		return err
	}
	all, _ := t.Budgets(ctx)
	if err := ledger.CheckBudgetOverlap(all, b); err != nil {
		return err
	}
	t.book.budgets[b.ID] = b
	return nil
}

func (t *tx) DeleteBudget(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Budget(ctx, id); err != nil {
		return err
	}
	delete(t.book.budgets, id)
	return nil
}

// Goals

func (t *tx) Goals(context.Context) ([]core.SavingsGoal, error) {
	out := make([]core.SavingsGoal, 0, len(t.book.goals))
	for _, g := range t.book.goals {
		out = append(out, copyGoal(g))
	}
	ledger.SortGoals(out)
	return out, nil
}

func (t *tx) Goal(_ context.Context, id string) (core.SavingsGoal, error) {
	g, ok := t.book.goals[id]
	if !ok {
		return core.SavingsGoal{}, core.NotFound("savings goal %s not found", id)
	}
	return copyGoal(g), nil
}

func (t *tx) CreateGoal(_ context.Context, g core.SavingsGoal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.book.goals[g.ID]; ok {
		return core.Conflict("savings goal %s already exists", g.ID)
	}
	t.book.goals[g.ID] = copyGoal(g)
	return nil
}

func (t *tx) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Goal(ctx, g.ID); err != nil {
		return err
	}
	t.book.goals[g.ID] = copyGoal(g)
	return nil
}

func (t *tx) DeleteGoal(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Goal(ctx, id); err != nil {
		return err
	}
	delete(t.book.goals, id)
	return nil
}

// Settings

func (t *tx) Settings(context.Context) (core.Settings, error) { return t.book.settings, nil }

func (t *tx) SaveSettings(_ context.Context, s core.Settings) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.book.settings = s
	return nil
}

func copyGoal(g core.SavingsGoal) core.SavingsGoal {
	if g.TargetDate != nil {
		d := *g.TargetDate
		g.TargetDate = &d
	}
	return g
}
