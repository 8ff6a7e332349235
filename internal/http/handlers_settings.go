package http

import (
	"net/http"

	"paypulse/internal/services"
)

type pinRequest struct {
	Pin string `json:"pin"`
}

type pinResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, user string) {
	st, err := s.ledger.Settings(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, st)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, user string) {
	var req services.SettingsInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.ledger.UpdateSettings(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, st)
}

func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request, user string) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := s.ledger.VerifyPin(r.Context(), user, req.Pin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, pinResponse{Valid: ok})
}
