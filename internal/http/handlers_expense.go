package http

import (
	"net/http"

	"paypulse/internal/core"
)

type expenseRequest struct {
	Amount        core.Money `json:"amount"`
	ExpenseDate   core.Date  `json:"expenseDate"`
	Merchant      string     `json:"merchant"`
	Note          string     `json:"note"`
	CategoryID    string     `json:"categoryId"`
	SavingsGoalID string     `json:"savingsGoalId"`
}

func (e expenseRequest) expense() core.Expense {
	return core.Expense{
		Amount:        e.Amount,
		ExpenseDate:   e.ExpenseDate,
		Merchant:      sanitizeInput(e.Merchant),
		Note:          sanitizeInput(e.Note),
		CategoryID:    e.CategoryID,
		SavingsGoalID: e.SavingsGoalID,
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, user string) {
	f, err := parseExpenseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.ledger.ListExpenses(r.Context(), user, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.ExpenseView{}
	}
	OK(w, items)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, user string) {
	e, err := s.ledger.GetExpense(r.Context(), user, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user string) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.CreateExpense(r.Context(), user, req.expense())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, user string) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.ledger.UpdateExpense(r.Context(), user, pathID(r), req.expense())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, user string) {
	if err := s.ledger.DeleteExpense(r.Context(), user, pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent(w)
}
