package http

import (
	"bytes"
	"fmt"
	"net/http"

	"paypulse/internal/core"
	"paypulse/internal/log"
	"paypulse/internal/report"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user string) {
	sum, err := s.dashboard.Summary(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, sum)
}

func (s *Server) monthlyReport(r *http.Request, user string) (core.MonthlyReport, error) {
	month, err := parseMonth(r.URL.Query(), core.DateOf(s.now().UTC()))
	if err != nil {
		return core.MonthlyReport{}, err
	}
	return s.ledger.MonthlyReport(r.Context(), user, month)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, user string) {
	rep, err := s.monthlyReport(r, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, rep)
}

func (s *Server) handleMonthlyReportPDF(w http.ResponseWriter, r *http.Request, user string) {
	rep, err := s.monthlyReport(r, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Monthly report rendered",
		log.FieldUserID, user,
		log.FieldMonth, rep.Month,
		"bytes", buf.Len())

	NewJSONResponse().
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="paypulse-%s.pdf"`, rep.Month)).
		Bytes("application/pdf", buf.Bytes()).
		Write(w)
}
