package google

import (
	"strings"
	"testing"
	"time"

	"paypulse/internal/core"
)

func TestTabName(t *testing.T) {
	tests := []struct {
		user, month, want string
	}{
		{"user-1", "2024-03", "2024-03 user-1"},
		{"a/b:c", "2024-12", "2024-12 a_b_c"},
		{"it's [me]?", "2024-01", "2024-01 it_s _me__"},
	}
	for _, tt := range tests {
		if got := TabName(tt.user, tt.month); got != tt.want {
			t.Errorf("TabName(%q, %q) = %q, want %q", tt.user, tt.month, got, tt.want)
		}
	}

	long := TabName(strings.Repeat("x", 200), "2024-03")
	if len(long) != maxTabTitle || !strings.HasPrefix(long, "2024-03 ") {
		t.Errorf("long tab name = %q (%d)", long, len(long))
	}
}

func TestReportRows(t *testing.T) {
	r := core.MonthlyReport{
		Month:        "2024-02",
		From:         core.NewDate(2024, 2, 1),
		To:           core.NewDate(2024, 2, 29),
		BaseCurrency: "EUR",
		Total:        core.MustMoney("30.255"),
		ByCategory: []core.CategoryAmount{
			{Name: "Food", Amount: core.MustMoney("20.255")},
			{Name: "Fuel", Amount: core.MustMoney("10")},
		},
		Expenses: []core.ExpenseView{{
			Expense: core.Expense{
				ID:          "e1",
				Amount:      core.MustMoney("20.255"),
				ExpenseDate: core.NewDate(2024, 2, 29),
				Merchant:    "=HYPERLINK(\"x\")",
			},
			CategoryName: "Food",
		}},
		GeneratedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	rows := ReportRows(r)
	// 5 summary rows, blank, header, 2 categories, blank, header, 1 expense
	if len(rows) != 12 {
		t.Fatalf("rows = %d, want 12: %v", len(rows), rows)
	}
	if rows[3][1] != 30.26 {
		t.Errorf("total cell = %v, want 30.26", rows[3][1])
	}
	if rows[1][2] != "2024-02-29" {
		t.Errorf("period end = %v", rows[1][2])
	}
	last := rows[len(rows)-1]
	if last[0] != "2024-02-29" || last[1] != "Food" || last[2] != "=HYPERLINK(\"x\")" || last[4] != 20.26 {
		t.Errorf("expense row = %v", last)
	}
	if len(last) != 6 {
		t.Errorf("expense row has %d cells, want 6", len(last))
	}
}
