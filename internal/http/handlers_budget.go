package http

import (
	"net/http"

	"paypulse/internal/core"
)

type budgetRequest struct {
	Name             string     `json:"name"`
	TotalAmount      core.Money `json:"totalAmount"`
	StartDate        core.Date  `json:"startDate"`
	EndDate          core.Date  `json:"endDate"`
	RecurringMonthly bool       `json:"recurringMonthly"`
	CategoryID       string     `json:"categoryId"`
}

func (b budgetRequest) budget() core.Budget {
	return core.Budget{
		Name:             sanitizeInput(b.Name),
		TotalAmount:      b.TotalAmount,
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		RecurringMonthly: b.RecurringMonthly,
		CategoryID:       b.CategoryID,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, user string) {
	items, err := s.ledger.ListBudgets(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.BudgetView{}
	}
	OK(w, items)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, user string) {
	b, err := s.ledger.GetBudget(r.Context(), user, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, user string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.CreateBudget(r.Context(), user, req.budget())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, user string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.UpdateBudget(r.Context(), user, pathID(r), req.budget())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, user string) {
	if err := s.ledger.DeleteBudget(r.Context(), user, pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent(w)
}
