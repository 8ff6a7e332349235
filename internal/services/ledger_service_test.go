package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
	"paypulse/internal/ledger/memory"
)

const user = "user-1"

var ctx = context.Background()

// fixture wires a LedgerService over the memory store with a clock that
// starts at 2024-03-15 10:00 UTC and ticks one second per reading.
type fixture struct {
	store  ledger.Store
	events *events.Recorder
	svc    *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New())
}

func newFixtureWithStore(t *testing.T, store ledger.Store) *fixture {
	t.Helper()
	var tick int64
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	var ids int64
	rec := &events.Recorder{}
	svc := NewLedgerService(store, rec, nil,
		WithClock(func() time.Time {
			return start.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Second)
		}),
		WithIDGenerator(func() string {
			return fmt.Sprintf("id-%03d", atomic.AddInt64(&ids, 1))
		}),
	)
	return &fixture{store: store, events: rec, svc: svc}
}

func (f *fixture) category(t *testing.T, name string, links bool) core.Category {
	t.Helper()
	c, err := f.svc.CreateCategory(ctx, user, CategoryInput{Name: name, LinksToSavingsGoals: &links})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func (f *fixture) goal(t *testing.T, name, target string) core.GoalView {
	t.Helper()
	g, err := f.svc.CreateGoal(ctx, user, core.SavingsGoal{Name: name, TargetAmount: core.MustMoney(target)})
	if err != nil {
		t.Fatalf("create goal %s: %v", name, err)
	}
	return g
}

func (f *fixture) saved(t *testing.T, goalID string) core.Money {
	t.Helper()
	g, err := f.svc.GetGoal(ctx, user, goalID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	return g.SavedAmount
}

func TestCreateCategory_DefaultsAndInference(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.CreateCategory(ctx, user, CategoryInput{Name: " Holiday Savings "})
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Holiday Savings" || c.ColorHex != core.DefaultColorHex || c.IconName != core.DefaultIconName {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if !c.LinksToSavingsGoals {
		t.Fatal("a savings-named category should accept goal contributions")
	}
	plain, err := f.svc.CreateCategory(ctx, user, CategoryInput{Name: "Groceries", ColorHex: "#112233"})
	if err != nil {
		t.Fatal(err)
	}
	if plain.LinksToSavingsGoals || plain.ColorHex != "#112233" {
		t.Fatalf("unexpected category: %+v", plain)
	}

	if _, err := f.svc.CreateCategory(ctx, user, CategoryInput{Name: "groceries"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate name: want conflict, got %v", err)
	}
	if _, err := f.svc.CreateCategory(ctx, user, CategoryInput{Name: "  "}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("blank name: want validation error, got %v", err)
	}
}

func TestUpdateCategory_KeepsFlagWhenOmitted(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Pot", true)
	got, err := f.svc.UpdateCategory(ctx, user, c.ID, CategoryInput{Name: "Rainy day"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.LinksToSavingsGoals || got.Name != "Rainy day" || !got.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("unexpected update: %+v", got)
	}
	if _, err := f.svc.UpdateCategory(ctx, user, "missing", CategoryInput{Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestContributionAtomicity(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Savings", true)
	g := f.goal(t, "Trip", "2000")

	var version int64
	_ = f.store.View(ctx, user, func(tx ledger.Tx) (err error) { version, err = tx.Version(ctx); return })

	e, err := f.svc.CreateExpense(ctx, user, core.Expense{
		Amount: core.MustMoney("500"), ExpenseDate: d(2024, 3, 15), CategoryID: cat.ID, SavingsGoalID: g.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Expense and credited goal are visible in the same snapshot.
	err = f.store.View(ctx, user, func(tx ledger.Tx) error {
		if _, err := tx.Expense(ctx, e.ID); err != nil {
			return err
		}
		goal, err := tx.Goal(ctx, g.ID)
		if err != nil {
			return err
		}
		if !goal.SavedAmount.Equal(core.MustMoney("500")) {
			return fmt.Errorf("saved = %s, want 500", goal.SavedAmount)
		}
		v, err := tx.Version(ctx)
		if err != nil {
			return err
		}
		if v != version+1 {
			return fmt.Errorf("expected one write transaction, version %d -> %d", version, v)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// failingStore makes every CreateExpense fail after the goal was credited.
type failingStore struct{ ledger.Store }

func (s failingStore) Update(ctx context.Context, userID string, fn func(ledger.Tx) error) error {
	return s.Store.Update(ctx, userID, func(tx ledger.Tx) error { return fn(failingTx{tx}) })
}

type failingTx struct{ ledger.Tx }

func (failingTx) CreateExpense(context.Context, core.Expense) error {
	return errors.New("disk full")
}

func TestContributionRollsBackWhenInsertFails(t *testing.T) {
	f := newFixtureWithStore(t, failingStore{memory.New()})
	cat := f.category(t, "Savings", true)
	g := f.goal(t, "Trip", "2000")

	_, err := f.svc.CreateExpense(ctx, user, core.Expense{
		Amount: core.MustMoney("500"), ExpenseDate: d(2024, 3, 15), CategoryID: cat.ID, SavingsGoalID: g.ID,
	})
	if err == nil {
		t.Fatal("expected insert failure")
	}
	if got := f.saved(t, g.ID); !got.IsZero() {
		t.Fatalf("failed insert credited the goal: saved = %s", got)
	}
}

func TestContributionRequiresLinkedCategory(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Food", false)
	g := f.goal(t, "Trip", "2000")
	_, err := f.svc.CreateExpense(ctx, user, core.Expense{
		Amount: core.MustMoney("10"), ExpenseDate: d(2024, 3, 15), CategoryID: cat.ID, SavingsGoalID: g.ID,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if got := f.saved(t, g.ID); !got.IsZero() {
		t.Fatalf("rejected expense credited the goal: %s", got)
	}
}

func TestUpdateExpense_MovesContribution(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Savings", true)
	g1 := f.goal(t, "Trip", "2000")
	g2 := f.goal(t, "Car", "9000")

	e, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("500"), ExpenseDate: d(2024, 3, 10), CategoryID: cat.ID, SavingsGoalID: g1.ID})
	if err != nil {
		t.Fatal(err)
	}

	// Same goal, new amount: apply the difference.
	upd := e.Expense
	upd.Amount = core.MustMoney("650")
	if _, err := f.svc.UpdateExpense(ctx, user, e.ID, upd); err != nil {
		t.Fatal(err)
	}
	if got := f.saved(t, g1.ID); !got.Equal(core.MustMoney("650")) {
		t.Fatalf("g1 saved = %s, want 650", got)
	}

	// Different goal: revert from g1, apply to g2.
	upd.SavingsGoalID = g2.ID
	upd.Amount = core.MustMoney("300")
	got, err := f.svc.UpdateExpense(ctx, user, e.ID, upd)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("update changed createdAt")
	}
	if s := f.saved(t, g1.ID); !s.IsZero() {
		t.Fatalf("g1 saved = %s, want 0", s)
	}
	if s := f.saved(t, g2.ID); !s.Equal(core.MustMoney("300")) {
		t.Fatalf("g2 saved = %s, want 300", s)
	}

	// Goal removed: revert only.
	upd.SavingsGoalID = ""
	if _, err := f.svc.UpdateExpense(ctx, user, e.ID, upd); err != nil {
		t.Fatal(err)
	}
	if s := f.saved(t, g2.ID); !s.IsZero() {
		t.Fatalf("g2 saved = %s, want 0", s)
	}
}

func TestDeleteExpense_RevertsAndFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Savings", true)
	g := f.goal(t, "Trip", "2000")
	e, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("500"), ExpenseDate: d(2024, 3, 10), CategoryID: cat.ID, SavingsGoalID: g.ID})
	if err != nil {
		t.Fatal(err)
	}

	// Manual correction below the contributed amount.
	goal := g.SavingsGoal
	goal.SavedAmount = core.MustMoney("200")
	if _, err := f.svc.UpdateGoal(ctx, user, g.ID, goal); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteExpense(ctx, user, e.ID); err != nil {
		t.Fatal(err)
	}
	if s := f.saved(t, g.ID); !s.IsZero() {
		t.Fatalf("saved = %s, want floor at 0", s)
	}
	if _, err := f.svc.GetExpense(ctx, user, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found after delete, got %v", err)
	}
}

func TestDeleteCategory_ConflictAndReassign(t *testing.T) {
	f := newFixture(t)
	food := f.category(t, "Food", false)
	other := f.category(t, "Other", false)
	e, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("20"), ExpenseDate: d(2024, 3, 10), CategoryID: food.ID})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.CreateBudget(ctx, user, core.Budget{Name: "Food", TotalAmount: core.MustMoney("100"), StartDate: d(2024, 3, 1), EndDate: d(2024, 3, 31), CategoryID: food.ID})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteCategory(ctx, user, food.ID, ""); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	if err := f.svc.DeleteCategory(ctx, user, food.ID, food.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("self reassignment: want validation error, got %v", err)
	}
	if err := f.svc.DeleteCategory(ctx, user, food.ID, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing target: want not found, got %v", err)
	}
	if err := f.svc.DeleteCategory(ctx, user, food.ID, other.ID); err != nil {
		t.Fatalf("reassign delete: %v", err)
	}

	ev, err := f.svc.GetExpense(ctx, user, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	bv, err := f.svc.GetBudget(ctx, user, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ev.CategoryID != other.ID || ev.CategoryName != "Other" || bv.CategoryID != other.ID {
		t.Fatalf("references not repointed: expense=%s budget=%s", ev.CategoryID, bv.CategoryID)
	}
	cats, _ := f.svc.ListCategories(ctx, user)
	if len(cats) != 1 {
		t.Fatalf("expected only the target category to remain, got %+v", cats)
	}
}

func TestDeleteGoal_DetachesExpenses(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Savings", true)
	g := f.goal(t, "Trip", "2000")
	e, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("50"), ExpenseDate: d(2024, 3, 10), CategoryID: cat.ID, SavingsGoalID: g.ID})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteGoal(ctx, user, g.ID); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.GetExpense(ctx, user, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SavingsGoalID != "" || !got.Amount.Equal(core.MustMoney("50")) {
		t.Fatalf("expense not detached: %+v", got)
	}
	// Deleting the detached expense must not touch any goal.
	if err := f.svc.DeleteExpense(ctx, user, e.ID); err != nil {
		t.Fatal(err)
	}
}

func TestBudgetMutationsReturnEvaluatedState(t *testing.T) {
	f := newFixture(t)
	food := f.category(t, "Food", false)
	if _, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("120"), ExpenseDate: d(2024, 3, 3), CategoryID: food.ID}); err != nil {
		t.Fatal(err)
	}
	b, err := f.svc.CreateBudget(ctx, user, core.Budget{Name: "Food", TotalAmount: core.MustMoney("600"), StartDate: d(2024, 1, 1), EndDate: d(2024, 1, 31), RecurringMonthly: true, CategoryID: food.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !b.SpentAmount.Equal(core.MustMoney("120")) || b.CategoryName != "Food" || !b.CycleStart.Same(d(2024, 3, 1)) {
		t.Fatalf("unexpected budget view: %+v", b)
	}

	if _, err := f.svc.CreateBudget(ctx, user, core.Budget{Name: "food", TotalAmount: core.MustMoney("1"), StartDate: d(2024, 1, 10), EndDate: d(2024, 1, 20), CategoryID: food.ID}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("overlapping budget: want conflict, got %v", err)
	}
	if _, err := f.svc.CreateBudget(ctx, user, core.Budget{Name: "X", TotalAmount: core.MustMoney("1"), StartDate: d(2024, 1, 10), EndDate: d(2024, 1, 20), CategoryID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing category: want not found, got %v", err)
	}

	upd := b.Budget
	upd.TotalAmount = core.MustMoney("100")
	got, err := f.svc.UpdateBudget(ctx, user, b.ID, upd)
	if err != nil {
		t.Fatal(err)
	}
	if !got.RemainingAmount.Equal(core.MustMoney("-20")) || got.Status != core.StatusOverspent {
		t.Fatalf("unexpected updated view: %+v", got)
	}
	if err := f.svc.DeleteBudget(ctx, user, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetBudget(ctx, user, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestListExpenses_FilterValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListExpenses(ctx, user, ledger.ExpenseFilter{From: d(2024, 3, 10), To: d(2024, 3, 1)})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := f.svc.ListExpenses(ctx, "", ledger.ExpenseFilter{}); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("missing user: want unauthorized, got %v", err)
	}
}

func TestSettingsAndPin(t *testing.T) {
	f := newFixture(t)
	st, err := f.svc.Settings(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if st.BaseCurrency != "INR" || st.PinSet {
		t.Fatalf("defaults: %+v", st)
	}
	if _, err := f.svc.UpdateSettings(ctx, user, SettingsInput{BaseCurrency: "euro"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("bad currency: want validation error, got %v", err)
	}
	if _, err := f.svc.UpdateSettings(ctx, user, SettingsInput{BaseCurrency: "EUR", NewPin: "12"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("short pin: want validation error, got %v", err)
	}
	if ok, _ := f.svc.VerifyPin(ctx, user, "1234"); ok {
		t.Fatal("no pin set yet")
	}

	st, err = f.svc.UpdateSettings(ctx, user, SettingsInput{BaseCurrency: "eur", NewPin: "4321"})
	if err != nil {
		t.Fatal(err)
	}
	if st.BaseCurrency != "EUR" || !st.PinSet {
		t.Fatalf("after update: %+v", st)
	}
	if ok, err := f.svc.VerifyPin(ctx, user, "4321"); err != nil || !ok {
		t.Fatalf("correct pin rejected: %v %v", ok, err)
	}
	if ok, _ := f.svc.VerifyPin(ctx, user, "0000"); ok {
		t.Fatal("wrong pin accepted")
	}

	// Changing only the currency keeps the pin.
	st, err = f.svc.UpdateSettings(ctx, user, SettingsInput{BaseCurrency: "USD"})
	if err != nil || !st.PinSet {
		t.Fatalf("pin lost: %+v %v", st, err)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newFixture(t)
	cat := f.category(t, "Food", false)
	e, err := f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("5"), ExpenseDate: d(2024, 2, 10), CategoryID: cat.ID})
	if err != nil {
		t.Fatal(err)
	}
	upd := e.Expense
	upd.ExpenseDate = d(2024, 3, 1)
	if _, err := f.svc.UpdateExpense(ctx, user, e.ID, upd); err != nil {
		t.Fatal(err)
	}
	// A rejected write publishes nothing.
	_, _ = f.svc.CreateExpense(ctx, user, core.Expense{Amount: core.MustMoney("5"), ExpenseDate: d(2024, 2, 10), CategoryID: "missing"})

	evs := f.events.Events()
	if len(evs) != 3 {
		t.Fatalf("want 3 events, got %d: %+v", len(evs), evs)
	}
	created, updated := evs[1], evs[2]
	if created.Entity != events.EntityExpense || created.Op != events.OpCreated || fmt.Sprint(created.Months) != "[2024-02]" {
		t.Fatalf("create event: %+v", created)
	}
	if updated.Op != events.OpUpdated || fmt.Sprint(updated.Months) != "[2024-02 2024-03]" {
		t.Fatalf("update event: %+v", updated)
	}
	if !(evs[0].Version < created.Version && created.Version < updated.Version) {
		t.Fatalf("versions should increase: %d %d %d", evs[0].Version, created.Version, updated.Version)
	}
	if updated.UserID != user {
		t.Fatalf("event user = %q", updated.UserID)
	}
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, events.LedgerChanged) error {
	return errors.New("broker unavailable")
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc := NewLedgerService(memory.New(), brokenPublisher{}, nil)
	if _, err := svc.CreateCategory(ctx, user, CategoryInput{Name: "Food"}); err != nil {
		t.Fatalf("mutation failed because of the publisher: %v", err)
	}
}

func TestMonthlyReport(t *testing.T) {
	f := newFixture(t)
	food := f.category(t, "Food", false)
	fun := f.category(t, "Fun", false)
	for _, e := range []core.Expense{
		{Amount: core.MustMoney("10.50"), ExpenseDate: d(2024, 3, 1), CategoryID: food.ID},
		{Amount: core.MustMoney("30"), ExpenseDate: d(2024, 3, 20), CategoryID: fun.ID},
		{Amount: core.MustMoney("4.50"), ExpenseDate: d(2024, 3, 31), CategoryID: food.ID},
		{Amount: core.MustMoney("99"), ExpenseDate: d(2024, 4, 1), CategoryID: food.ID},
	} {
		if _, err := f.svc.CreateExpense(ctx, user, e); err != nil {
			t.Fatal(err)
		}
	}
	r, err := f.svc.MonthlyReport(ctx, user, d(2024, 3, 7))
	if err != nil {
		t.Fatal(err)
	}
	if r.Month != "2024-03" || !r.Total.Equal(core.MustMoney("45")) || len(r.Expenses) != 3 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if len(r.ByCategory) != 2 || r.ByCategory[0].Name != "Fun" || !r.ByCategory[1].Amount.Equal(core.MustMoney("15")) {
		t.Fatalf("unexpected breakdown: %+v", r.ByCategory)
	}
	if r.BaseCurrency != "INR" {
		t.Fatalf("currency = %s", r.BaseCurrency)
	}
}
