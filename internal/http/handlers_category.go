package http

import (
	"net/http"
	"strings"

	"paypulse/internal/core"
	"paypulse/internal/services"
)

type categoryRequest struct {
	Name                string `json:"name"`
	ColorHex            string `json:"colorHex"`
	IconName            string `json:"iconName"`
	LinksToSavingsGoals *bool  `json:"linksToSavingsGoals"`
}

func (c categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:                sanitizeInput(c.Name),
		ColorHex:            strings.TrimSpace(c.ColorHex),
		IconName:            sanitizeInput(c.IconName),
		LinksToSavingsGoals: c.LinksToSavingsGoals,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, user string) {
	cats, err := s.ledger.ListCategories(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	OK(w, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, user string) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), user, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, user string) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.UpdateCategory(r.Context(), user, pathID(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, user string) {
	reassignTo := strings.TrimSpace(r.URL.Query().Get("reassignTo"))
	if err := s.ledger.DeleteCategory(r.Context(), user, pathID(r), reassignTo); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent(w)
}
