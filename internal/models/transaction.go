package models

import "time"

// Transaction sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

func ValidSide(s string) bool {
	return s == SideBuy || s == SideSell
}

// Transaction is an append-only record of one executed trade.
// Timestamp is assigned at append time and never changes.
type Transaction struct {
	ID        int       `json:"id"`
	BotID     int       `json:"botId"`
	Side      string    `json:"side"` // BUY or SELL
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"` // base asset quantity
	Value     float64   `json:"value"`  // quote asset value
	Fee       float64   `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
}
