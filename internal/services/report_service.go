package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

// MonthlyReport gathers the expenses of the month containing month, totals
// them and groups them by category, largest first.
func (s *LedgerService) MonthlyReport(ctx context.Context, userID string, month core.Date) (core.MonthlyReport, error) {
	var out core.MonthlyReport
	err := s.view(ctx, userID, func(tx ledger.Tx) (err error) {
		out, err = BuildMonthlyReport(ctx, tx, month)
		return err
	})
	if err != nil {
		return core.MonthlyReport{}, err
	}
	out.GeneratedAt = s.now().UTC()
	return out, nil
}

// BuildMonthlyReport reads one month of a ledger snapshot.
func BuildMonthlyReport(ctx context.Context, tx ledger.Tx, month core.Date) (core.MonthlyReport, error) {
	settings, err := tx.Settings(ctx)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load settings: %w", err)
	}
	cats, err := categoryIndex(ctx, tx)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	f := ledger.MonthFilter(month)
	es, err := tx.Expenses(ctx, f)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list month expenses: %w", err)
	}

	r := core.MonthlyReport{
		Month:        month.MonthKey(),
		From:         f.From,
		To:           f.To,
		BaseCurrency: settings.BaseCurrency,
		Expenses:     expenseViews(es, cats),
		ByCategory:   []core.CategoryAmount{},
	}
	byName := map[string]core.Money{}
	for _, e := range r.Expenses {
		r.Total = r.Total.Add(e.Amount)
		byName[e.CategoryName] = byName[e.CategoryName].Add(e.Amount)
	}
	for name, amount := range byName {
		r.ByCategory = append(r.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		a, b := r.ByCategory[i], r.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return r, nil
}
