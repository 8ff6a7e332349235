package memory

import (
	"context"
	"sync"

	"paypulse/internal/core"
	"paypulse/internal/sheets"
)

var _ sheets.Exporter = (*Exporter)(nil)

// Exporter keeps the last report exported per user and month.
type Exporter struct {
	mu      sync.Mutex
	reports map[string]core.MonthlyReport
	calls   int
}

func New() *Exporter {
	return &Exporter{reports: make(map[string]core.MonthlyReport)}
}

func (e *Exporter) ExportMonthlyReport(_ context.Context, userID string, r core.MonthlyReport) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ref := userID + "/" + r.Month
	e.reports[ref] = r
	e.calls++
	return ref, nil
}

// Report returns the report last exported for userID and month ("YYYY-MM").
func (e *Exporter) Report(userID, month string) (core.MonthlyReport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.reports[userID+"/"+month]
	return r, ok
}

// Calls counts exports, including overwrites.
func (e *Exporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
