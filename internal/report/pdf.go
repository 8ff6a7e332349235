// Package report renders monthly ledger reports as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jung-kurt/gofpdf"

	"paypulse/internal/core"
)

var (
	headerColor     = [3]int{31, 41, 55}
	headerTextColor = [3]int{255, 255, 255}
	bodyTextColor   = [3]int{33, 33, 33}
	lineColor       = [3]int{200, 200, 200}
)

const pageWidth = 190.0

// Render writes r as a one-section PDF to w.
func Render(w io.Writer, r core.MonthlyReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	currency := r.BaseCurrency

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, tr("Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  Monthly report "+r.Month), "", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  %s to %s", r.From, r.To)), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+pageWidth, pdf.GetY())
		pdf.Ln(3)
	}

	section("Total spent")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, tr(money(r.Total, currency)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section("By category")
	pdf.SetFont("Arial", "", 10)
	if len(r.ByCategory) == 0 {
		pdf.CellFormat(0, 6, "No expenses this month.", "", 1, "L", false, 0, "")
	}
	for _, c := range r.ByCategory {
		pdf.CellFormat(pageWidth-50, 6, tr(c.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, tr(money(c.Amount, currency)), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	if len(r.Expenses) > 0 {
		section("Expenses")
		widths := []float64{25, 45, 70, 50}
		pdf.SetFont("Arial", "B", 10)
		for i, h := range []string{"Date", "Category", "Merchant / note", "Amount"} {
			align := "L"
			if i == len(widths)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, h, "B", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, e := range r.Expenses {
			desc := e.Merchant
			if desc == "" {
				desc = e.Note
			}
			pdf.CellFormat(widths[0], 6, e.ExpenseDate.String(), "", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, tr(truncate(e.CategoryName, 28)), "", 0, "L", false, 0, "")
			pdf.CellFormat(widths[2], 6, tr(truncate(desc, 42)), "", 0, "L", false, 0, "")
			pdf.CellFormat(widths[3], 6, tr(money(e.Amount, currency)), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func money(m core.Money, currency string) string {
	return m.StringFixed() + " " + currency
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Store writes rendered reports under a directory, one folder per user.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path is where the report of month for userID is written.
func (s *Store) Path(userID, month string) string {
	return filepath.Join(s.dir, unsafeName.ReplaceAllString(userID, "_"), month+".pdf")
}

// Write renders r and replaces the user's file for that month.
func (s *Store) Write(userID string, r core.MonthlyReport) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return "", err
	}

	path := s.Path(userID, r.Month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replace report: %w", err)
	}
	return path, nil
}
