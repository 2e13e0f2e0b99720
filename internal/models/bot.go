package models

import "time"

// Bot status values.
const (
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusStopped = "stopped"
)

func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusPaused || s == StatusStopped
}

type Bot struct {
	ID             int       `json:"id"`
	UserID         int       `json:"userId"`
	Name           string    `json:"name"`
	TradingPair    string    `json:"tradingPair"` // e.g. BTC/USDT
	BaseAsset      string    `json:"baseAsset"`   // e.g. BTC
	QuoteAsset     string    `json:"quoteAsset"`  // e.g. USDT
	Investment     float64   `json:"investment"`
	Status         string    `json:"status"` // active, paused, stopped
	UpperLimit     float64   `json:"upperLimit"`
	LowerLimit     float64   `json:"lowerLimit"`
	GridCount      int       `json:"gridCount"`
	ProfitPerGrid  float64   `json:"profitPerGrid"` // fraction per grid, e.g. 0.005
	StopLoss       *float64  `json:"stopLoss,omitempty"`
	IsPaperTrading bool      `json:"isPaperTrading"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActiveAt   time.Time `json:"lastActiveAt"`
}

// BotUpdate carries a partial update. Nil fields are left untouched.
// ID and UserID are deliberately absent: identity and ownership never change.
type BotUpdate struct {
	Name           *string  `json:"name,omitempty"`
	TradingPair    *string  `json:"tradingPair,omitempty"`
	BaseAsset      *string  `json:"baseAsset,omitempty"`
	QuoteAsset     *string  `json:"quoteAsset,omitempty"`
	Investment     *float64 `json:"investment,omitempty"`
	Status         *string  `json:"status,omitempty"`
	UpperLimit     *float64 `json:"upperLimit,omitempty"`
	LowerLimit     *float64 `json:"lowerLimit,omitempty"`
	GridCount      *int     `json:"gridCount,omitempty"`
	ProfitPerGrid  *float64 `json:"profitPerGrid,omitempty"`
	StopLoss       *float64 `json:"stopLoss,omitempty"`
	IsPaperTrading *bool    `json:"isPaperTrading,omitempty"`
}
