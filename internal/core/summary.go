package core

import "time"

// Status is the derived state of a budget or savings goal.
type Status string

const (
	StatusOnTrack   Status = "on_track"
	StatusOverspent Status = "overspent"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// ExpenseView is an expense as returned to clients.
type ExpenseView struct {
	Expense
	CategoryName  string `json:"categoryName"`
	CategoryColor string `json:"categoryColor"`
}

// BudgetView is a budget evaluated over its active cycle.
type BudgetView struct {
	Budget
	CategoryName      string  `json:"categoryName"`
	SpentAmount       Money   `json:"spentAmount"`
	RemainingAmount   Money   `json:"remainingAmount"`
	DailyBudget       Money   `json:"dailyBudget"`
	CompletionPercent float64 `json:"completionPercent"`
	CycleStart        Date    `json:"cycleStart"`
	CycleEnd          Date    `json:"cycleEnd"`
	DaysRemaining     int     `json:"daysRemaining"`
	Status            Status  `json:"status"`
}

// GoalView is a savings goal with its derived progress. DaysLeft and
// DailyAmountNeeded are nil when the goal has no target date.
type GoalView struct {
	SavingsGoal
	RemainingAmount   Money   `json:"remainingAmount"`
	ProgressPercent   float64 `json:"progressPercent"`
	DaysLeft          *int    `json:"daysLeft"`
	DailyAmountNeeded *Money  `json:"dailyAmountNeeded"`
	Status            Status  `json:"status"`
}

type SettingsView struct {
	BaseCurrency string `json:"baseCurrency"`
	PinSet       bool   `json:"pinSet"`
}

func (s Settings) View() SettingsView {
	return SettingsView{BaseCurrency: s.BaseCurrency, PinSet: s.PinSet()}
}

// DashboardSummary is the aggregate shown on the home screen.
type DashboardSummary struct {
	AsOf                Date             `json:"asOf"`
	BaseCurrency        string           `json:"baseCurrency"`
	TotalSavings        Money            `json:"totalSavings"`
	ActiveSavingsGoals  int              `json:"activeSavingsGoals"`
	TotalSpentThisMonth Money            `json:"totalSpentThisMonth"`
	TotalSpentToday     Money            `json:"totalSpentToday"`
	SavingsGoalsPreview []GoalView       `json:"savingsGoalsPreview"`
	SpendingByCategory  map[string]Money `json:"spendingByCategory"`
	RecentExpenses      []ExpenseView    `json:"recentExpenses"`
	Budgets             []BudgetView     `json:"budgets"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthlyReport is the data behind the monthly PDF and sheet exports.
type MonthlyReport struct {
	Month        string           `json:"month"` // YYYY-MM
	From         Date             `json:"from"`
	To           Date             `json:"to"`
	BaseCurrency string           `json:"baseCurrency"`
	Total        Money            `json:"total"`
	ByCategory   []CategoryAmount `json:"byCategory"`
	Expenses     []ExpenseView    `json:"expenses"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}
