package google

import (
	"regexp"
	"strings"

	"paypulse/internal/core"
)

// maxTabTitle is the longest sheet title the Sheets API accepts.
const maxTabTitle = 100

// lastColumn is the right edge of the expense table.
const lastColumn = "F"

var tabUnsafe = regexp.MustCompile(`[\[\]*?/\\:']`)

// TabName is "<YYYY-MM> <user>", with characters Sheets rejects replaced.
func TabName(userID, month string) string {
	name := month + " " + tabUnsafe.ReplaceAllString(strings.TrimSpace(userID), "_")
	if len(name) > maxTabTitle {
		name = name[:maxTabTitle]
	}
	return name
}

func quoteTab(tab string) string {
	return "'" + tab + "'"
}

// ReportRows lays a monthly report out as a summary block, a per-category
// block and the expense table.
func ReportRows(r core.MonthlyReport) [][]any {
	rows := [][]any{
		{"Month", r.Month},
		{"Period", r.From.String(), r.To.String()},
		{"Currency", r.BaseCurrency},
		{"Total", amount(r.Total)},
		{"Generated", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{},
		{"Category", "Amount"},
	}
	for _, c := range r.ByCategory {
		rows = append(rows, []any{c.Name, amount(c.Amount)})
	}
	rows = append(rows, []any{}, []any{"Date", "Category", "Merchant", "Note", "Amount", "Savings goal"})
	for _, e := range r.Expenses {
		rows = append(rows, []any{
			e.ExpenseDate.String(), e.CategoryName, e.Merchant, e.Note, amount(e.Amount), e.SavingsGoalID,
		})
	}
	return rows
}

func amount(m core.Money) float64 {
	return m.Round(2).Decimal().InexactFloat64()
}
