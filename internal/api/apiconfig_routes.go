package api

import (
	"net/http"

	"github.com/gridpilot/gridpilot-backend/internal/models"
)

type saveApiConfigRequest struct {
	ApiKey     string `json:"apiKey" validate:"required"`
	ApiSecret  string `json:"apiSecret" validate:"required"`
	Passphrase string `json:"passphrase" validate:"required"`
}

// Responses carry the masked view only. The raw secret never leaves the
// store once written.
func (s *Server) handleGetApiConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.ApiConfig(r.Context(), s.opts.DemoUserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg.Masked())
}

func (s *Server) handleSaveApiConfig(w http.ResponseWriter, r *http.Request) {
	var req saveApiConfigRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cfg := &models.ApiConfig{
		UserID:     s.opts.DemoUserID,
		ApiKey:     req.ApiKey,
		ApiSecret:  req.ApiSecret,
		Passphrase: req.Passphrase,
	}

	saved, err := s.svc.SaveApiConfig(r.Context(), cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved.Masked())
}
