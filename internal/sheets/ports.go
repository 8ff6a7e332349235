// Package sheets pushes monthly reports to a spreadsheet.
package sheets

import (
	"context"

	"paypulse/internal/core"
)

// Exporter writes one monthly report of one user and returns a reference to
// where it landed.
type Exporter interface {
	ExportMonthlyReport(ctx context.Context, userID string, r core.MonthlyReport) (ref string, err error)
}
