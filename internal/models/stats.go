package models

import "time"

// BotStats is the running performance record for one bot.
// Exactly one row exists per bot, created together with it.
type BotStats struct {
	ID               int       `json:"id"`
	BotID            int       `json:"botId"`
	TotalProfit      float64   `json:"totalProfit"`
	CompletedTrades  int       `json:"completedTrades"`
	ReturnPercentage float64   `json:"returnPercentage"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// TotalStats aggregates performance across all of a user's bots.
type TotalStats struct {
	TotalBots       int     `json:"totalBots"`
	ActiveBots      int     `json:"activeBots"`
	TotalInvestment float64 `json:"totalInvestment"`
	TotalProfit     float64 `json:"totalProfit"`
	CompletedTrades int     `json:"completedTrades"`
}
