package api

import (
	"net/http"
	"strings"

	"github.com/gridpilot/gridpilot-backend/internal/models"
)

type createBotRequest struct {
	Name           string   `json:"name" validate:"required"`
	TradingPair    string   `json:"tradingPair" validate:"required"`
	BaseAsset      string   `json:"baseAsset"`
	QuoteAsset     string   `json:"quoteAsset"`
	Investment     float64  `json:"investment" validate:"required,gt=0"`
	Status         string   `json:"status" validate:"omitempty,oneof=active paused stopped"`
	UpperLimit     float64  `json:"upperLimit" validate:"required,gt=0"`
	LowerLimit     float64  `json:"lowerLimit" validate:"required,gt=0"`
	GridCount      int      `json:"gridCount" validate:"required,min=1"`
	ProfitPerGrid  float64  `json:"profitPerGrid" validate:"required,gt=0,lt=1"`
	StopLoss       *float64 `json:"stopLoss" validate:"omitempty,gt=0"`
	IsPaperTrading *bool    `json:"isPaperTrading"`
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.svc.ListBots(r.Context(), s.opts.DemoUserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bot, err := s.svc.GetBot(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req createBotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	base, quote := req.BaseAsset, req.QuoteAsset
	if base == "" || quote == "" {
		base, quote = splitPair(req.TradingPair)
	}
	status := req.Status
	if status == "" {
		status = models.StatusActive
	}
	paper := true
	if req.IsPaperTrading != nil {
		paper = *req.IsPaperTrading
	}

	bot := &models.Bot{
		UserID:         s.opts.DemoUserID,
		Name:           req.Name,
		TradingPair:    req.TradingPair,
		BaseAsset:      base,
		QuoteAsset:     quote,
		Investment:     req.Investment,
		Status:         status,
		UpperLimit:     req.UpperLimit,
		LowerLimit:     req.LowerLimit,
		GridCount:      req.GridCount,
		ProfitPerGrid:  req.ProfitPerGrid,
		StopLoss:       req.StopLoss,
		IsPaperTrading: paper,
	}

	created, err := s.svc.CreateBot(r.Context(), bot)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd models.BotUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	bot, err := s.svc.UpdateBot(r.Context(), id, upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleBotStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.svc.BotStats(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBotGrid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.svc.GridPlan(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleTotalStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.svc.Totals(r.Context(), s.opts.DemoUserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// splitPair decomposes "BTC/USDT" into base and quote. A pair without a
// separator yields the whole string as base and an empty quote, which the
// service rejects during validation.
func splitPair(pair string) (string, string) {
	for _, sep := range []string{"/", "_", "-"} {
		if i := strings.Index(pair, sep); i > 0 {
			return pair[:i], pair[i+len(sep):]
		}
	}
	return pair, ""
}
