package store

import (
	"context"
	"errors"

	"github.com/gridpilot/gridpilot-backend/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a uniqueness guard is violated,
// e.g. creating a second stats row for the same bot.
var ErrAlreadyExists = errors.New("already exists")

// BotStore owns Bot records.
type BotStore interface {
	// CreateBot assigns a fresh id and creation/last-active timestamps.
	CreateBot(ctx context.Context, bot *models.Bot) (*models.Bot, error)
	GetBot(ctx context.Context, id int) (*models.Bot, error)
	// ListBotsByUser returns the user's bots in insertion order.
	ListBotsByUser(ctx context.Context, userID int) ([]models.Bot, error)
	// UpdateBot merges non-nil fields. A status change refreshes lastActiveAt.
	UpdateBot(ctx context.Context, id int, upd models.BotUpdate) (*models.Bot, error)
	// DeleteBot exists only to compensate a failed creation. Bots are never
	// removed through the API; stopping a bot is a status change.
	DeleteBot(ctx context.Context, id int) error
}

// TransactionLedger owns the append-only Transaction records.
type TransactionLedger interface {
	// AppendTransaction assigns id and timestamp at append time and fails
	// with ErrNotFound if the owning bot does not exist.
	AppendTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	// TransactionsByBot returns all transactions for a bot, most recent first.
	TransactionsByBot(ctx context.Context, botID int) ([]models.Transaction, error)
	// RecentTransactionsByBot returns at most limit entries of the recency
	// ordering. limit <= 0 yields an empty result, never an error.
	RecentTransactionsByBot(ctx context.Context, botID, limit int) ([]models.Transaction, error)
}

// StatsStore owns BotStats records, one per bot.
type StatsStore interface {
	// CreateBotStats creates a zeroed stats row. ErrAlreadyExists if one
	// is already present for the bot.
	CreateBotStats(ctx context.Context, botID int) (*models.BotStats, error)
	GetBotStats(ctx context.Context, botID int) (*models.BotStats, error)
	// UpdateBotStats replaces the three derived figures and stamps lastUpdated.
	UpdateBotStats(ctx context.Context, botID int, totalProfit float64, completedTrades int, returnPercentage float64) (*models.BotStats, error)
	// DeleteBotStats compensates a failed bot creation, mirroring DeleteBot.
	DeleteBotStats(ctx context.Context, botID int) error
}

// ApiConfigStore owns exchange credential records, one per user.
type ApiConfigStore interface {
	GetApiConfig(ctx context.Context, userID int) (*models.ApiConfig, error)
	CreateApiConfig(ctx context.Context, cfg *models.ApiConfig) (*models.ApiConfig, error)
	UpdateApiConfig(ctx context.Context, id int, apiKey, apiSecret, passphrase string) (*models.ApiConfig, error)
}

// Store is the full persistence surface. Constructed once at process start
// and handed to the service layer; swappable for a durable backend.
type Store interface {
	BotStore
	TransactionLedger
	StatsStore
	ApiConfigStore

	Ping(ctx context.Context) error
	Close()
}
