package api

import (
	"net/http"

	"github.com/gridpilot/gridpilot-backend/internal/models"
)

type createTransactionRequest struct {
	BotID  int     `json:"botId" validate:"required,min=1"`
	Side   string  `json:"side" validate:"required,oneof=BUY SELL"`
	Price  float64 `json:"price" validate:"gte=0"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Value  float64 `json:"value" validate:"gte=0"`
	Fee    float64 `json:"fee" validate:"gte=0"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tx := &models.Transaction{
		BotID:  req.BotID,
		Side:   req.Side,
		Price:  req.Price,
		Amount: req.Amount,
		Value:  req.Value,
		Fee:    req.Fee,
	}

	created, err := s.svc.RecordTransaction(r.Context(), tx)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleBotTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var txs []models.Transaction
	if r.URL.Query().Has("limit") {
		txs, err = s.svc.RecentTransactions(r.Context(), id, parseLimit(r, 20))
	} else {
		txs, err = s.svc.Transactions(r.Context(), id)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
