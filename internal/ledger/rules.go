package ledger

import (
	"errors"
	"sort"
	"strings"

	"paypulse/internal/core"
)

// ErrReadOnly is returned by write methods called inside View.
var ErrReadOnly = errors.New("ledger: write in read-only transaction")

// CheckCategoryName fails with Conflict when another category already uses
// c's name.
func CheckCategoryName(existing []core.Category, c core.Category) error {
	for _, o := range existing {
		if o.ID != c.ID && core.SameName(o.Name, c.Name) {
			return core.Conflict("category %q already exists", c.Name)
		}
	}
	return nil
}

// CheckBudgetOverlap fails with Conflict when a different budget with the
// same name has an overlapping stored window.
func CheckBudgetOverlap(existing []core.Budget, b core.Budget) error {
	for _, o := range existing {
		if o.ID != b.ID && core.SameName(o.Name, b.Name) && o.Overlaps(b) {
			return core.Conflict("budget %q overlaps %s..%s", b.Name, o.StartDate, o.EndDate)
		}
	}
	return nil
}

// SortExpenses orders by expense date desc, then creation time desc, then id
// for a stable tie-break.
func SortExpenses(es []core.Expense) {
	sort.SliceStable(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if c := a.ExpenseDate.Cmp(b.ExpenseDate); c != 0 {
			return c > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func SortCategories(cs []core.Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		return strings.ToLower(cs[i].Name) < strings.ToLower(cs[j].Name)
	})
}

func SortBudgets(bs []core.Budget) {
	sort.SliceStable(bs, func(i, j int) bool {
		if c := bs[i].StartDate.Cmp(bs[j].StartDate); c != 0 {
			return c > 0
		}
		return bs[i].CreatedAt.After(bs[j].CreatedAt)
	})
}

func SortGoals(gs []core.SavingsGoal) {
	sort.SliceStable(gs, func(i, j int) bool {
		return gs[i].CreatedAt.After(gs[j].CreatedAt)
	})
}
