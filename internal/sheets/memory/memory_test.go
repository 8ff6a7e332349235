package memory

import (
	"context"
	"testing"

	"paypulse/internal/core"
)

func TestExporter_KeepsLatestReport(t *testing.T) {
	e := New()
	ctx := context.Background()

	if _, err := e.ExportMonthlyReport(ctx, "u1", core.MonthlyReport{Month: "2024-03", Total: core.MustMoney("10")}); err != nil {
		t.Fatal(err)
	}
	ref, err := e.ExportMonthlyReport(ctx, "u1", core.MonthlyReport{Month: "2024-03", Total: core.MustMoney("25")})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "u1/2024-03" {
		t.Errorf("ref = %q", ref)
	}

	got, ok := e.Report("u1", "2024-03")
	if !ok || !got.Total.Equal(core.MustMoney("25")) {
		t.Errorf("report = %+v, %v", got, ok)
	}
	if _, ok := e.Report("u2", "2024-03"); ok {
		t.Error("report leaked across users")
	}
	if e.Calls() != 2 {
		t.Errorf("calls = %d, want 2", e.Calls())
	}
}
