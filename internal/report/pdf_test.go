package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paypulse/internal/core"
)

func sampleReport() core.MonthlyReport {
	return core.MonthlyReport{
		Month:        "2024-03",
		From:         core.NewDate(2024, 3, 1),
		To:           core.NewDate(2024, 3, 31),
		BaseCurrency: "EUR",
		Total:        core.MustMoney("150.50"),
		ByCategory: []core.CategoryAmount{
			{Name: "Food", Amount: core.MustMoney("100")},
			{Name: "Café", Amount: core.MustMoney("50.50")},
		},
		Expenses: []core.ExpenseView{
			{Expense: core.Expense{ID: "e1", Amount: core.MustMoney("100"), ExpenseDate: core.NewDate(2024, 3, 15), Merchant: "Market"}, CategoryName: "Food"},
			{Expense: core.Expense{ID: "e2", Amount: core.MustMoney("50.50"), ExpenseDate: core.NewDate(2024, 3, 2), Note: strings.Repeat("long note ", 10)}, CategoryName: "Café"},
		},
		GeneratedAt: time.Date(2024, 3, 31, 22, 0, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		report core.MonthlyReport
	}{
		{"with expenses", sampleReport()},
		{"empty month", core.MonthlyReport{Month: "2024-04", BaseCurrency: "INR", From: core.NewDate(2024, 4, 1), To: core.NewDate(2024, 4, 30)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, tt.report); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
				t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(8, buf.Len())])
			}
		})
	}
}

func TestStore_Write(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	path, err := s.Write("user/../1", sampleReport())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if want := filepath.Join(dir, "user_.._1", "2024-03.pdf"); path != want {
		t.Errorf("Write() path = %s, want %s", path, want)
	}
	if _, err := s.Write("user/../1", sampleReport()); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("report directory holds %d files, want 1", len(entries))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd..." {
		t.Errorf("truncate() = %q", got)
	}
}
