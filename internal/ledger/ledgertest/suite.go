// Package ledgertest is a behavioural test suite every ledger.Store
// implementation runs against itself.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) ledger.Store

// Run exercises the full ledger.Store contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, ledger.Store)
	}{
		{"CategoryCRUD", testCategoryCRUD},
		{"CategoryNameConflict", testCategoryNameConflict},
		{"CategoryUsageAndReassign", testCategoryUsageAndReassign},
		{"ExpenseReferences", testExpenseReferences},
		{"ExpenseFilterAndOrder", testExpenseFilterAndOrder},
		{"DetachGoal", testDetachGoal},
		{"BudgetOverlapConflict", testBudgetOverlapConflict},
		{"GoalRoundTrip", testGoalRoundTrip},
		{"SettingsDefaults", testSettingsDefaults},
		{"RollbackOnError", testRollbackOnError},
		{"VersionBumps", testVersionBumps},
		{"UserIsolation", testUserIsolation},
		{"ViewIsReadOnly", testViewIsReadOnly},
		{"ConcurrentUpdatesSerialize", testConcurrentUpdatesSerialize},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

var (
	ctx   = context.Background()
	epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func update(t *testing.T, s ledger.Store, user string, fn func(ledger.Tx) error) {
	t.Helper()
	if err := s.Update(ctx, user, fn); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func view(t *testing.T, s ledger.Store, user string, fn func(ledger.Tx) error) {
	t.Helper()
	if err := s.View(ctx, user, fn); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func category(id, name string, n int) core.Category {
	return core.Category{ID: id, Name: name, ColorHex: core.DefaultColorHex, IconName: core.DefaultIconName, CreatedAt: epoch.Add(time.Duration(n) * time.Second)}
}

func expense(id, cat string, amount string, d core.Date, n int) core.Expense {
	return core.Expense{ID: id, Amount: core.MustMoney(amount), ExpenseDate: d, CategoryID: cat, CreatedAt: epoch.Add(time.Duration(n) * time.Second)}
}

func seedCategory(t *testing.T, s ledger.Store, user string, cats ...core.Category) {
	t.Helper()
	update(t, s, user, func(tx ledger.Tx) error {
		for _, c := range cats {
			if err := tx.CreateCategory(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func testCategoryCRUD(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c2", "travel", 1), category("c1", "Food", 2))
	view(t, s, "u1", func(tx ledger.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		if len(cats) != 2 || cats[0].Name != "Food" || cats[1].Name != "travel" {
			return fmt.Errorf("unexpected order: %+v", cats)
		}
		return nil
	})

	update(t, s, "u1", func(tx ledger.Tx) error {
		c, err := tx.Category(ctx, "c1")
		if err != nil {
			return err
		}
		c.Name = "Groceries"
		c.LinksToSavingsGoals = true
		return tx.UpdateCategory(ctx, c)
	})
	view(t, s, "u1", func(tx ledger.Tx) error {
		c, err := tx.Category(ctx, "c1")
		if err != nil {
			return err
		}
		if c.Name != "Groceries" || !c.LinksToSavingsGoals || c.ColorHex != core.DefaultColorHex {
			return fmt.Errorf("update lost: %+v", c)
		}
		return nil
	})

	update(t, s, "u1", func(tx ledger.Tx) error { return tx.DeleteCategory(ctx, "c2") })
	err := s.View(ctx, "u1", func(tx ledger.Tx) error {
		_, err := tx.Category(ctx, "c2")
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func testCategoryNameConflict(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	err := s.Update(ctx, "u1", func(tx ledger.Tx) error {
		return tx.CreateCategory(ctx, category("c2", "fOOD", 2))
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// Same name is fine for another user.
	seedCategory(t, s, "u2", category("c3", "Food", 1))
}

func testCategoryUsageAndReassign(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1), category("c2", "Other", 2))
	update(t, s, "u1", func(tx ledger.Tx) error {
		if err := tx.CreateExpense(ctx, expense("e1", "c1", "10", core.NewDate(2024, 3, 1), 1)); err != nil {
			return err
		}
		return tx.CreateBudget(ctx, core.Budget{ID: "b1", Name: "B", TotalAmount: core.MustMoney("100"),
			StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31), CategoryID: "c1", CreatedAt: epoch})
	})

	err := s.Update(ctx, "u1", func(tx ledger.Tx) error { return tx.DeleteCategory(ctx, "c1") })
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict deleting a used category, got %v", err)
	}

	update(t, s, "u1", func(tx ledger.Tx) error {
		u, err := tx.CategoryUsage(ctx, "c1")
		if err != nil {
			return err
		}
		if u.Expenses != 1 || u.Budgets != 1 {
			return fmt.Errorf("usage: %+v", u)
		}
		if err := tx.ReassignCategory(ctx, "c1", "c2"); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, "c1")
	})
	view(t, s, "u1", func(tx ledger.Tx) error {
		e, err := tx.Expense(ctx, "e1")
		if err != nil {
			return err
		}
		b, err := tx.Budget(ctx, "b1")
		if err != nil {
			return err
		}
		if e.CategoryID != "c2" || b.CategoryID != "c2" {
			return fmt.Errorf("not repointed: %s %s", e.CategoryID, b.CategoryID)
		}
		return nil
	})
}

func testExpenseReferences(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	err := s.Update(ctx, "u1", func(tx ledger.Tx) error {
		return tx.CreateExpense(ctx, expense("e1", "missing", "10", core.NewDate(2024, 3, 1), 1))
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for missing category, got %v", err)
	}
	err = s.Update(ctx, "u1", func(tx ledger.Tx) error {
		e := expense("e1", "c1", "10", core.NewDate(2024, 3, 1), 1)
		e.SavingsGoalID = "nope"
		return tx.CreateExpense(ctx, e)
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for missing goal, got %v", err)
	}
	// Another user's category is invisible.
	seedCategory(t, s, "u2", category("c9", "Food", 1))
	err = s.Update(ctx, "u1", func(tx ledger.Tx) error {
		return tx.CreateExpense(ctx, expense("e2", "c9", "10", core.NewDate(2024, 3, 1), 1))
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign category, got %v", err)
	}
}

func testExpenseFilterAndOrder(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1), category("c2", "Fun", 2))
	update(t, s, "u1", func(tx ledger.Tx) error {
		for _, e := range []core.Expense{
			expense("e1", "c1", "10", core.NewDate(2024, 3, 1), 1),
			expense("e2", "c2", "20", core.NewDate(2024, 3, 5), 2),
			expense("e3", "c1", "30", core.NewDate(2024, 3, 5), 3),
			expense("e4", "c1", "40.25", core.NewDate(2024, 4, 1), 4),
		} {
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	cases := []struct {
		name string
		f    ledger.ExpenseFilter
		want []string
	}{
		{"all", ledger.ExpenseFilter{}, []string{"e4", "e3", "e2", "e1"}},
		{"march", ledger.MonthFilter(core.NewDate(2024, 3, 20)), []string{"e3", "e2", "e1"}},
		{"category", ledger.ExpenseFilter{CategoryID: "c1"}, []string{"e4", "e3", "e1"}},
		{"limit", ledger.ExpenseFilter{Limit: 2}, []string{"e4", "e3"}},
		{"day", ledger.ExpenseFilter{From: core.NewDate(2024, 3, 5), To: core.NewDate(2024, 3, 5)}, []string{"e3", "e2"}},
	}
	for _, tc := range cases {
		view(t, s, "u1", func(tx ledger.Tx) error {
			got, err := tx.Expenses(ctx, tc.f)
			if err != nil {
				return err
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if fmt.Sprint(ids) != fmt.Sprint(tc.want) {
				return fmt.Errorf("%s: got %v want %v", tc.name, ids, tc.want)
			}
			return nil
		})
	}
	view(t, s, "u1", func(tx ledger.Tx) error {
		e, err := tx.Expense(ctx, "e4")
		if err != nil {
			return err
		}
		if !e.Amount.Equal(core.MustMoney("40.25")) || !e.ExpenseDate.Same(core.NewDate(2024, 4, 1)) {
			return fmt.Errorf("round trip: %+v", e)
		}
		return nil
	})
}

func testDetachGoal(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Savings", 1))
	update(t, s, "u1", func(tx ledger.Tx) error {
		if err := tx.CreateGoal(ctx, core.SavingsGoal{ID: "g1", Name: "Trip", TargetAmount: core.MustMoney("1000"), CreatedAt: epoch}); err != nil {
			return err
		}
		for i, id := range []string{"e1", "e2"} {
			e := expense(id, "c1", "50", core.NewDate(2024, 3, 1), i)
			e.SavingsGoalID = "g1"
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	update(t, s, "u1", func(tx ledger.Tx) error {
		n, err := tx.DetachGoal(ctx, "g1")
		if err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("detached %d", n)
		}
		return tx.DeleteGoal(ctx, "g1")
	})
	view(t, s, "u1", func(tx ledger.Tx) error {
		es, err := tx.Expenses(ctx, ledger.ExpenseFilter{})
		if err != nil {
			return err
		}
		for _, e := range es {
			if e.SavingsGoalID != "" {
				return fmt.Errorf("expense %s still references goal", e.ID)
			}
		}
		return nil
	})
}

func testBudgetOverlapConflict(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	jan := core.Budget{ID: "b1", Name: "Food", TotalAmount: core.MustMoney("500"),
		StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31), CategoryID: "c1", CreatedAt: epoch}
	update(t, s, "u1", func(tx ledger.Tx) error { return tx.CreateBudget(ctx, jan) })

	overlap := jan
	overlap.ID, overlap.Name = "b2", "FOOD"
	overlap.StartDate = core.NewDate(2024, 1, 15)
	overlap.EndDate = core.NewDate(2024, 2, 15)
	err := s.Update(ctx, "u1", func(tx ledger.Tx) error { return tx.CreateBudget(ctx, overlap) })
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	feb := jan
	feb.ID = "b3"
	feb.StartDate, feb.EndDate = core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)
	update(t, s, "u1", func(tx ledger.Tx) error { return tx.CreateBudget(ctx, feb) })

	view(t, s, "u1", func(tx ledger.Tx) error {
		bs, err := tx.Budgets(ctx)
		if err != nil {
			return err
		}
		if len(bs) != 2 || bs[0].ID != "b3" {
			return fmt.Errorf("budgets should be ordered by start desc: %+v", bs)
		}
		if !bs[1].TotalAmount.Equal(core.MustMoney("500")) || !bs[1].EndDate.Same(jan.EndDate) {
			return fmt.Errorf("round trip: %+v", bs[1])
		}
		return nil
	})
}

func testGoalRoundTrip(t *testing.T, s ledger.Store) {
	target := core.NewDate(2024, 12, 31)
	update(t, s, "u1", func(tx ledger.Tx) error {
		if err := tx.CreateGoal(ctx, core.SavingsGoal{ID: "g1", Name: "Old", TargetAmount: core.MustMoney("100"), CreatedAt: epoch}); err != nil {
			return err
		}
		return tx.CreateGoal(ctx, core.SavingsGoal{ID: "g2", Name: "New", Label: "trip", TargetAmount: core.MustMoney("2000"),
			SavedAmount: core.MustMoney("150.5"), TargetDate: &target, CreatedAt: epoch.Add(time.Minute)})
	})
	view(t, s, "u1", func(tx ledger.Tx) error {
		gs, err := tx.Goals(ctx)
		if err != nil {
			return err
		}
		if len(gs) != 2 || gs[0].ID != "g2" {
			return fmt.Errorf("goals should be newest first: %+v", gs)
		}
		g := gs[0]
		if g.TargetDate == nil || !g.TargetDate.Same(target) || !g.SavedAmount.Equal(core.MustMoney("150.5")) || g.Label != "trip" {
			return fmt.Errorf("round trip: %+v", g)
		}
		if gs[1].TargetDate != nil {
			return fmt.Errorf("undated goal gained a date")
		}
		return nil
	})
}

func testSettingsDefaults(t *testing.T, s ledger.Store) {
	view(t, s, "u1", func(tx ledger.Tx) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if st.BaseCurrency != core.DefaultBaseCurrency || st.PinSet() {
			return fmt.Errorf("defaults: %+v", st)
		}
		return nil
	})
	update(t, s, "u1", func(tx ledger.Tx) error {
		return tx.SaveSettings(ctx, core.Settings{BaseCurrency: "EUR", PinHash: "hash"})
	})
	view(t, s, "u1", func(tx ledger.Tx) error {
		st, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if st.BaseCurrency != "EUR" || st.PinHash != "hash" {
			return fmt.Errorf("saved: %+v", st)
		}
		return nil
	})
}

func testRollbackOnError(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	boom := errors.New("boom")
	err := s.Update(ctx, "u1", func(tx ledger.Tx) error {
		if err := tx.CreateExpense(ctx, expense("e1", "c1", "10", core.NewDate(2024, 3, 1), 1)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	view(t, s, "u1", func(tx ledger.Tx) error {
		es, err := tx.Expenses(ctx, ledger.ExpenseFilter{})
		if err != nil {
			return err
		}
		if len(es) != 0 {
			return fmt.Errorf("rolled back write is visible: %+v", es)
		}
		return nil
	})
}

func testVersionBumps(t *testing.T, s ledger.Store) {
	var v0, v1, v2 int64
	view(t, s, "u1", func(tx ledger.Tx) (err error) { v0, err = tx.Version(ctx); return })
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	view(t, s, "u1", func(tx ledger.Tx) (err error) { v1, err = tx.Version(ctx); return })
	_ = s.Update(ctx, "u1", func(tx ledger.Tx) error { return errors.New("abort") })
	view(t, s, "u1", func(tx ledger.Tx) (err error) { v2, err = tx.Version(ctx); return })
	if v1 <= v0 {
		t.Fatalf("version did not advance: %d -> %d", v0, v1)
	}
	if v2 != v1 {
		t.Fatalf("aborted update changed version: %d -> %d", v1, v2)
	}
}

func testUserIsolation(t *testing.T, s ledger.Store) {
	seedCategory(t, s, "u1", category("c1", "Food", 1))
	err := s.View(ctx, "u2", func(tx ledger.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		if len(cats) != 0 {
			return fmt.Errorf("u2 sees %d categories", len(cats))
		}
		_, err = tx.Category(ctx, "c1")
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found across users, got %v", err)
	}
}

func testViewIsReadOnly(t *testing.T, s ledger.Store) {
	err := s.View(ctx, "u1", func(tx ledger.Tx) error {
		return tx.CreateCategory(ctx, category("c1", "Food", 1))
	})
	if err == nil {
		t.Fatalf("expected write inside View to fail")
	}
}

func testConcurrentUpdatesSerialize(t *testing.T, s ledger.Store) {
	const n = 8
	update(t, s, "u1", func(tx ledger.Tx) error {
		return tx.CreateGoal(ctx, core.SavingsGoal{ID: "g1", Name: "Pot", TargetAmount: core.MustMoney("1000"), CreatedAt: epoch})
	})
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, "u1", func(tx ledger.Tx) error {
				g, err := tx.Goal(ctx, "g1")
				if err != nil {
					return err
				}
				g.SavedAmount = g.SavedAmount.Add(core.MustMoney("1"))
				return tx.UpdateGoal(ctx, g)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}
	view(t, s, "u1", func(tx ledger.Tx) error {
		g, err := tx.Goal(ctx, "g1")
		if err != nil {
			return err
		}
		if !g.SavedAmount.Equal(core.MoneyFromInt(n)) {
			return fmt.Errorf("lost updates: saved=%s", g.SavedAmount)
		}
		return nil
	})
}
