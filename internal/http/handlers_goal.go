package http

import (
	"net/http"

	"paypulse/internal/core"
)

type goalRequest struct {
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	TargetAmount core.Money `json:"targetAmount"`
	SavedAmount  core.Money `json:"savedAmount"`
	TargetDate   *core.Date `json:"targetDate"`
}

func (g goalRequest) goal() core.SavingsGoal {
	return core.SavingsGoal{
		Name:         sanitizeInput(g.Name),
		Label:        sanitizeInput(g.Label),
		TargetAmount: g.TargetAmount,
		SavedAmount:  g.SavedAmount,
		TargetDate:   g.TargetDate,
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, user string) {
	items, err := s.ledger.ListGoals(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.GoalView{}
	}
	OK(w, items)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request, user string) {
	g, err := s.ledger.GetGoal(r.Context(), user, pathID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, g)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, user string) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.ledger.CreateGoal(r.Context(), user, req.goal())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, user string) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.ledger.UpdateGoal(r.Context(), user, pathID(r), req.goal())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, user string) {
	if err := s.ledger.DeleteGoal(r.Context(), user, pathID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent(w)
}
