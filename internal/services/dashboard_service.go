package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"

	"paypulse/internal/cache"
	"paypulse/internal/core"
	"paypulse/internal/ledger"
	"paypulse/internal/log"
)

const (
	DefaultGoalsPreview   = 3
	DefaultRecentExpenses = 5
)

// DashboardOptions sizes the dashboard lists.
type DashboardOptions struct {
	GoalsPreview   int
	RecentExpenses int
}

func (o DashboardOptions) withDefaults() DashboardOptions {
	if o.GoalsPreview <= 0 {
		o.GoalsPreview = DefaultGoalsPreview
	}
	if o.RecentExpenses <= 0 {
		o.RecentExpenses = DefaultRecentExpenses
	}
	return o
}

// DashboardService aggregates a user's ledger into the dashboard summary.
// Results are cached per ledger version, so a write always invalidates them.
type DashboardService struct {
	store  ledger.Store
	cache  cache.Cache[core.DashboardSummary]
	group  singleflight.Group
	opts   DashboardOptions
	today  func() core.Date
	logger *log.Logger
}

func NewDashboardService(store ledger.Store, c cache.Cache[core.DashboardSummary], opts DashboardOptions, logger *log.Logger) *DashboardService {
	if c == nil {
		c = cache.Noop[core.DashboardSummary]{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		store:  store,
		cache:  c,
		opts:   opts.withDefaults(),
		today:  core.Today,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// Summary returns the dashboard for today.
func (s *DashboardService) Summary(ctx context.Context, userID string) (core.DashboardSummary, error) {
	return s.SummaryAt(ctx, userID, s.today())
}

// SummaryAt returns the dashboard as seen on the given day.
func (s *DashboardService) SummaryAt(ctx context.Context, userID string, today core.Date) (core.DashboardSummary, error) {
	var version int64
	if err := s.store.View(ctx, userID, func(tx ledger.Tx) (err error) {
		version, err = tx.Version(ctx)
		return err
	}); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("read ledger version: %w", err)
	}
	key := cacheKey(userID, version, today)
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		var (
			sum     core.DashboardSummary
			current int64
		)
		err := s.store.View(ctx, userID, func(tx ledger.Tx) error {
			var err error
			if current, err = tx.Version(ctx); err != nil {
				return err
			}
			sum, err = BuildDashboard(ctx, tx, today, s.opts)
			return err
		})
		if err != nil {
			return core.DashboardSummary{}, err
		}
		s.cache.Set(cacheKey(userID, current, today), sum)
		return sum, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build dashboard", log.FieldUserID, userID, log.FieldError, err)
		return core.DashboardSummary{}, fmt.Errorf("build dashboard: %w", err)
	}
	return v.(core.DashboardSummary), nil
}

func cacheKey(userID string, version int64, today core.Date) string {
	return fmt.Sprintf("%s|%d|%s", userID, version, today)
}

// BuildDashboard computes the summary from one consistent snapshot.
func BuildDashboard(ctx context.Context, tx ledger.Tx, today core.Date, opts DashboardOptions) (core.DashboardSummary, error) {
	opts = opts.withDefaults()

	settings, err := tx.Settings(ctx)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load settings: %w", err)
	}
	cats, err := categoryIndex(ctx, tx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	goals, err := tx.Goals(ctx)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list goals: %w", err)
	}
	month, err := tx.Expenses(ctx, ledger.MonthFilter(today))
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list month expenses: %w", err)
	}
	recent, err := tx.Expenses(ctx, ledger.ExpenseFilter{Limit: opts.RecentExpenses})
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list recent expenses: %w", err)
	}
	budgets, err := budgetViews(ctx, tx, cats, today)
	if err != nil {
		return core.DashboardSummary{}, err
	}

	sum := core.DashboardSummary{
		AsOf:               today,
		BaseCurrency:       settings.BaseCurrency,
		SpendingByCategory: map[string]core.Money{},
		RecentExpenses:     expenseViews(recent, cats),
		Budgets:            budgets,
	}
	for _, g := range goals {
		sum.TotalSavings = sum.TotalSavings.Add(g.SavedAmount)
		if GoalIsActive(g, today) {
			sum.ActiveSavingsGoals++
		}
	}
	for _, e := range month {
		sum.TotalSpentThisMonth = sum.TotalSpentThisMonth.Add(e.Amount)
		if e.ExpenseDate.Same(today) {
			sum.TotalSpentToday = sum.TotalSpentToday.Add(e.Amount)
		}
		name := cats[e.CategoryID].Name
		sum.SpendingByCategory[name] = sum.SpendingByCategory[name].Add(e.Amount)
	}
	for name, amount := range sum.SpendingByCategory {
		if amount.IsZero() {
			delete(sum.SpendingByCategory, name)
		}
	}

	preview := previewGoals(goals, opts.GoalsPreview)
	sum.SavingsGoalsPreview = EvaluateGoals(preview, today)
	return sum, nil
}

// previewGoals orders goals by nearest target date, undated last, ties by
// creation order, and keeps the first n.
func previewGoals(goals []core.SavingsGoal, n int) []core.SavingsGoal {
	ordered := append([]core.SavingsGoal(nil), goals...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.TargetDate != nil && b.TargetDate != nil:
			if c := a.TargetDate.Cmp(*b.TargetDate); c != 0 {
				return c < 0
			}
		case a.TargetDate != nil:
			return true
		case b.TargetDate != nil:
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}
