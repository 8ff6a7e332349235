package services

import (
	"testing"

	"paypulse/internal/core"
)

func spend(cat, amount string, on core.Date) core.Expense {
	return core.Expense{Amount: core.MustMoney(amount), ExpenseDate: on, CategoryID: cat}
}

func TestEvaluateBudget(t *testing.T) {
	monthly := core.Budget{Name: "Food", TotalAmount: core.MustMoney("1000"), StartDate: d(2024, 1, 1), EndDate: d(2024, 1, 31), RecurringMonthly: true, CategoryID: "food"}
	oneOff := monthly
	oneOff.RecurringMonthly = false
	longRun := core.Budget{Name: "Long run", TotalAmount: core.MustMoney("2913100"), StartDate: d(2024, 3, 1), EndDate: d(9999, 12, 31), CategoryID: "savings"}

	expenses := []core.Expense{
		spend("food", "100.10", d(2024, 3, 1)),
		spend("food", "200", d(2024, 3, 15)),
		spend("food", "999", d(2024, 2, 28)), // previous cycle
		spend("fun", "50", d(2024, 3, 10)),   // other category
		spend("food", "75", d(2024, 1, 20)),
	}

	tests := []struct {
		name          string
		budget        core.Budget
		today         core.Date
		wantSpent     string
		wantRemaining string
		wantDaily     string
		wantDays      int
		wantPercent   float64
		wantStatus    core.Status
	}{
		{
			name: "recurring budget in march", budget: monthly, today: d(2024, 3, 15),
			wantSpent: "300.10", wantRemaining: "699.90", wantDaily: "41.17", wantDays: 17, wantPercent: 30.01, wantStatus: core.StatusOnTrack,
		},
		{
			name: "last day gets the full remainder", budget: monthly, today: d(2024, 3, 31),
			wantSpent: "300.10", wantRemaining: "699.90", wantDaily: "699.90", wantDays: 1, wantPercent: 30.01, wantStatus: core.StatusOnTrack,
		},
		{
			name: "one-off budget after its window is completed", budget: oneOff, today: d(2024, 3, 15),
			wantSpent: "75", wantRemaining: "925", wantDaily: "925", wantDays: 1, wantPercent: 7.5, wantStatus: core.StatusCompleted,
		},
		{
			name: "one-off budget before its window counts every day", budget: oneOff, today: d(2023, 12, 20),
			wantSpent: "75", wantRemaining: "925", wantDaily: "29.84", wantDays: 31, wantPercent: 7.5, wantStatus: core.StatusOnTrack,
		},
		{
			name: "window centuries long counts every day", budget: longRun, today: d(2024, 3, 15),
			wantSpent: "0", wantRemaining: "2913100", wantDaily: "1", wantDays: 2913100, wantPercent: 0, wantStatus: core.StatusOnTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateBudget(tt.budget, expenses, tt.today)
			if !got.SpentAmount.Equal(core.MustMoney(tt.wantSpent)) {
				t.Errorf("spent = %s, want %s", got.SpentAmount, tt.wantSpent)
			}
			if !got.RemainingAmount.Equal(core.MustMoney(tt.wantRemaining)) {
				t.Errorf("remaining = %s, want %s", got.RemainingAmount, tt.wantRemaining)
			}
			if !got.DailyBudget.Equal(core.MustMoney(tt.wantDaily)) {
				t.Errorf("daily = %s, want %s", got.DailyBudget, tt.wantDaily)
			}
			if got.DaysRemaining != tt.wantDays {
				t.Errorf("days = %d, want %d", got.DaysRemaining, tt.wantDays)
			}
			if got.CompletionPercent != tt.wantPercent {
				t.Errorf("percent = %v, want %v", got.CompletionPercent, tt.wantPercent)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestEvaluateBudget_RemainingIsExactAndUnclamped(t *testing.T) {
	b := core.Budget{TotalAmount: core.MustMoney("100.05"), StartDate: d(2024, 3, 1), EndDate: d(2024, 3, 31), CategoryID: "c"}
	es := []core.Expense{spend("c", "0.10", d(2024, 3, 2)), spend("c", "0.20", d(2024, 3, 3)), spend("c", "150", d(2024, 3, 4))}

	got := EvaluateBudget(b, es, d(2024, 3, 10))
	if !got.RemainingAmount.Equal(got.TotalAmount.Sub(got.SpentAmount)) {
		t.Fatalf("remaining %s != total %s - spent %s", got.RemainingAmount, got.TotalAmount, got.SpentAmount)
	}
	if !got.RemainingAmount.Equal(core.MustMoney("-50.25")) {
		t.Fatalf("remaining = %s, want -50.25", got.RemainingAmount)
	}
	if got.Status != core.StatusOverspent {
		t.Fatalf("status = %s, want overspent", got.Status)
	}
	if got.CompletionPercent <= 100 {
		t.Fatalf("completion should exceed 100, got %v", got.CompletionPercent)
	}
	if !got.DailyBudget.IsNegative() {
		t.Fatalf("daily budget should carry the overspend, got %s", got.DailyBudget)
	}
}

func TestEvaluateBudget_Idempotent(t *testing.T) {
	b := core.Budget{TotalAmount: core.MustMoney("500"), StartDate: d(2024, 1, 1), EndDate: d(2024, 1, 31), RecurringMonthly: true, CategoryID: "c"}
	es := []core.Expense{spend("c", "12.34", d(2024, 3, 2))}
	first := EvaluateBudget(b, es, d(2024, 3, 15))
	second := EvaluateBudget(b, es, d(2024, 3, 15))
	if !first.SpentAmount.Equal(second.SpentAmount) || !first.DailyBudget.Equal(second.DailyBudget) ||
		first.CompletionPercent != second.CompletionPercent || first.Status != second.Status ||
		!first.CycleStart.Same(second.CycleStart) {
		t.Fatalf("evaluations differ: %+v vs %+v", first, second)
	}
}
