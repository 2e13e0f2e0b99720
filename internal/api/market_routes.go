package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gridpilot/gridpilot-backend/internal/bitget"
)

// venueClient builds an exchange client for a market proxy call. Stored
// credentials for the demo user win over the env fallback; a ?paper=
// query parameter overrides the configured trading mode.
func (s *Server) venueClient(r *http.Request) *bitget.Client {
	creds := s.opts.VenueCredentials
	if cfg, err := s.svc.ApiConfig(r.Context(), s.opts.DemoUserID); err == nil {
		creds.ApiKey = cfg.ApiKey
		creds.ApiSecret = cfg.ApiSecret
		creds.Passphrase = cfg.Passphrase
	}
	if v := r.URL.Query().Get("paper"); v != "" {
		creds.IsPaperTrading = v == "true" || v == "1"
	}
	return s.newVenueClient(creds)
}

func (s *Server) handleMarketPairs(w http.ResponseWriter, r *http.Request) {
	payload, err := s.venueClient(r).GetTradingPairs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMarketBalance(w http.ResponseWriter, r *http.Request) {
	payload, err := s.venueClient(r).GetAccountBalance(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	payload, err := s.venueClient(r).GetHistoricalTrades(r.Context(), symbol, parseLimit(r, 20))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMarketRules(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	payload, err := s.venueClient(r).GetSymbolRules(r.Context(), symbol)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	payload, err := s.venueClient(r).GetTickerPrice(r.Context(), symbol)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
