// Package worker regenerates monthly reports when a ledger changes.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/ledger"
	"paypulse/internal/log"
	"paypulse/internal/report"
	"paypulse/internal/services"
	"paypulse/internal/sheets"
)

// maxParallelMonths bounds the months of one event rendered at once.
const maxParallelMonths = 4

// ReportWorker renders the PDF of every month an event touches and, when an
// exporter is configured, pushes the same report to a spreadsheet.
type ReportWorker struct {
	store    ledger.Store
	pdfs     *report.Store
	exporter sheets.Exporter
	logger   *log.Logger
	now      func() time.Time

	group singleflight.Group
}

// NewReportWorker wires the worker. exporter may be nil.
func NewReportWorker(store ledger.Store, pdfs *report.Store, exporter sheets.Exporter, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		store:    store,
		pdfs:     pdfs,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleLedgerChanged is the AMQP handler. An event without months refreshes
// the current month. A returned error makes the broker redeliver.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, ev events.LedgerChanged) error {
	if ev.UserID == "" {
		w.logger.WarnContext(ctx, "Dropping ledger event without user", log.FieldEntity, ev.Entity)
		return nil
	}
	months := events.Months(ev.Months...)
	if len(months) == 0 {
		months = []string{core.DateOf(w.now().UTC()).MonthKey()}
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldUserID, ev.UserID,
		log.FieldEntity, ev.Entity,
		log.FieldOperation, ev.Op,
		log.FieldVersion, ev.Version,
		"months", months)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelMonths)
	for _, month := range months {
		g.Go(func() error {
			return w.Regenerate(gctx, ev.UserID, month)
		})
	}
	return g.Wait()
}

// Regenerate rebuilds one month of one user. Concurrent calls for the same
// report share a single run.
func (w *ReportWorker) Regenerate(ctx context.Context, userID, month string) error {
	start, err := core.ParseMonth(month)
	if err != nil {
		// Redelivery cannot fix a bad month key.
		w.logger.WarnContext(ctx, "Skipping invalid month", log.FieldUserID, userID, log.FieldMonth, month)
		return nil
	}
	_, err, _ = w.group.Do(userID+"\x00"+month, func() (any, error) {
		return nil, w.regenerate(ctx, userID, start)
	})
	return err
}

func (w *ReportWorker) regenerate(ctx context.Context, userID string, month core.Date) error {
	var r core.MonthlyReport
	err := w.store.View(ctx, userID, func(tx ledger.Tx) (err error) {
		r, err = services.BuildMonthlyReport(ctx, tx, month)
		return err
	})
	if err != nil {
		return fmt.Errorf("build report %s: %w", month.MonthKey(), err)
	}
	r.GeneratedAt = w.now().UTC()

	path, err := w.pdfs.Write(userID, r)
	if err != nil {
		return fmt.Errorf("write report %s: %w", r.Month, err)
	}
	w.logger.InfoContext(ctx, "Report written",
		log.FieldUserID, userID,
		log.FieldMonth, r.Month,
		log.FieldOperation, log.OpRender,
		"path", path,
		"expenses", len(r.Expenses))

	if w.exporter == nil {
		return nil
	}
	ref, err := w.exporter.ExportMonthlyReport(ctx, userID, r)
	if err != nil {
		return fmt.Errorf("export report %s: %w", r.Month, err)
	}
	w.logger.InfoContext(ctx, "Report exported",
		log.FieldUserID, userID,
		log.FieldMonth, r.Month,
		log.FieldOperation, log.OpExport,
		"ref", ref)
	return nil
}
