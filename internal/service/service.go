// Package service is the composition root for the bot lifecycle and
// accounting engine. It orchestrates the store, the ledger and the stats
// aggregator; identity (the user id) is always supplied by the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gridpilot/gridpilot-backend/internal/grid"
	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/gridpilot/gridpilot-backend/internal/notifications"
	"github.com/gridpilot/gridpilot-backend/internal/stats"
	"github.com/gridpilot/gridpilot-backend/internal/store"
	"github.com/sirupsen/logrus"
)

// FieldError reports one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail for malformed or out-of-range
// input. Recoverable: the caller fixes the input and retries.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type BotService struct {
	store  store.Store
	agg    *stats.Aggregator
	notify *notifications.Sender

	// botLocks serializes the append+stats write pair per bot so readers
	// never observe the ledger ahead of the stats row.
	mu       sync.Mutex
	botLocks map[int]*sync.Mutex
}

func New(st store.Store, agg *stats.Aggregator, notify *notifications.Sender) *BotService {
	return &BotService{
		store:    st,
		agg:      agg,
		notify:   notify,
		botLocks: make(map[int]*sync.Mutex),
	}
}

func (s *BotService) lockBot(botID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.botLocks[botID]
	if !ok {
		l = &sync.Mutex{}
		s.botLocks[botID] = l
	}
	return l
}

// CreateBot validates the input, persists the bot and creates its zeroed
// stats row. A failure on either side leaves no orphan behind.
func (s *BotService) CreateBot(ctx context.Context, bot *models.Bot) (*models.Bot, error) {
	if err := validateNewBot(bot); err != nil {
		return nil, err
	}

	created, err := s.store.CreateBot(ctx, bot)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	if _, err := s.agg.Initialize(ctx, created.ID); err != nil {
		if delErr := s.store.DeleteBot(ctx, created.ID); delErr != nil {
			logrus.WithField("botId", created.ID).
				Errorf("compensating delete after stats init failure: %v", delErr)
		}
		return nil, fmt.Errorf("initialize stats for bot %d: %w", created.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"botId":  created.ID,
		"userId": created.UserID,
		"pair":   created.TradingPair,
	}).Info("bot created")

	if s.notify != nil {
		s.notify.BotCreated(created)
	}
	return created, nil
}

func (s *BotService) GetBot(ctx context.Context, id int) (*models.Bot, error) {
	return s.store.GetBot(ctx, id)
}

func (s *BotService) ListBots(ctx context.Context, userID int) ([]models.Bot, error) {
	return s.store.ListBotsByUser(ctx, userID)
}

// GridPlan summarizes a bot's price grid for display: the step between
// adjacent lines, the trigger-zone levels and an indicative profit figure.
type GridPlan struct {
	StepSize        float64   `json:"stepSize"`
	Levels          []float64 `json:"levels"`
	PotentialProfit float64   `json:"potentialProfit"`
}

func (s *BotService) GridPlan(ctx context.Context, botID int) (*GridPlan, error) {
	bot, err := s.store.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	step, err := grid.StepSize(bot.UpperLimit, bot.LowerLimit, bot.GridCount)
	if err != nil {
		return nil, err
	}
	levels, err := grid.Levels(bot.UpperLimit, bot.LowerLimit, grid.DefaultLevels)
	if err != nil {
		return nil, err
	}

	return &GridPlan{
		StepSize: step,
		Levels:   levels,
		PotentialProfit: grid.PotentialProfit(
			bot.Investment, bot.ProfitPerGrid, bot.GridCount, grid.DefaultActivationRate),
	}, nil
}

// UpdateBot merges a partial update. Identity and ownership are immutable;
// the update type cannot express them. A status change refreshes the
// last-active timestamp and is announced.
func (s *BotService) UpdateBot(ctx context.Context, id int, upd models.BotUpdate) (*models.Bot, error) {
	if err := validateBotUpdate(ctx, s.store, id, upd); err != nil {
		return nil, err
	}

	var oldStatus string
	if upd.Status != nil {
		prev, err := s.store.GetBot(ctx, id)
		if err != nil {
			return nil, err
		}
		oldStatus = prev.Status
	}

	updated, err := s.store.UpdateBot(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && oldStatus != updated.Status && s.notify != nil {
		s.notify.BotStatusChanged(updated, oldStatus)
	}
	return updated, nil
}

// RecordTransaction appends one trade to the ledger and folds it into the
// owning bot's stats. Both writes happen under the bot's lock, and the stats
// row is checked up front so the ledger is never left ahead of the stats.
func (s *BotService) RecordTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}

	l := s.lockBot(tx.BotID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.store.GetBotStats(ctx, tx.BotID); err != nil {
		return nil, fmt.Errorf("stats for bot %d: %w", tx.BotID, err)
	}

	appended, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if _, err := s.agg.OnTransactionAppended(ctx, appended); err != nil {
		return nil, fmt.Errorf("update stats: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"botId": appended.BotID,
		"side":  appended.Side,
		"value": appended.Value,
	}).Info("transaction recorded")

	return appended, nil
}

func (s *BotService) Transactions(ctx context.Context, botID int) ([]models.Transaction, error) {
	return s.store.TransactionsByBot(ctx, botID)
}

func (s *BotService) RecentTransactions(ctx context.Context, botID, limit int) ([]models.Transaction, error) {
	return s.store.RecentTransactionsByBot(ctx, botID, limit)
}

func (s *BotService) BotStats(ctx context.Context, botID int) (*models.BotStats, error) {
	return s.store.GetBotStats(ctx, botID)
}

func (s *BotService) Totals(ctx context.Context, userID int) (*models.TotalStats, error) {
	return s.agg.TotalsForUser(ctx, userID)
}

func (s *BotService) ApiConfig(ctx context.Context, userID int) (*models.ApiConfig, error) {
	return s.store.GetApiConfig(ctx, userID)
}

// SaveApiConfig stores credentials for the user, replacing any existing
// record. One config per user, enforced by lookup.
func (s *BotService) SaveApiConfig(ctx context.Context, cfg *models.ApiConfig) (*models.ApiConfig, error) {
	if err := validateApiConfig(cfg); err != nil {
		return nil, err
	}

	existing, err := s.store.GetApiConfig(ctx, cfg.UserID)
	if err == nil {
		return s.store.UpdateApiConfig(ctx, existing.ID, cfg.ApiKey, cfg.ApiSecret, cfg.Passphrase)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.store.CreateApiConfig(ctx, cfg)
}

// --- validation ---

func validateNewBot(bot *models.Bot) error {
	var fields []FieldError

	if bot.Investment <= 0 {
		fields = append(fields, FieldError{"investment", "must be greater than zero"})
	}
	if bot.UpperLimit <= bot.LowerLimit {
		fields = append(fields, FieldError{"upperLimit", "must be greater than lowerLimit"})
	}
	if bot.GridCount < 1 {
		fields = append(fields, FieldError{"gridCount", "must be at least 1"})
	}
	if bot.ProfitPerGrid <= 0 || bot.ProfitPerGrid >= 1 {
		fields = append(fields, FieldError{"profitPerGrid", "must be a fraction between 0 and 1"})
	}
	if !models.ValidStatus(bot.Status) {
		fields = append(fields, FieldError{"status", "must be active, paused or stopped"})
	}
	if bot.TradingPair == "" {
		fields = append(fields, FieldError{"tradingPair", "is required"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// validateBotUpdate checks the fields a partial update touches against the
// merged result, so an update cannot invert the price range.
func validateBotUpdate(ctx context.Context, bots store.BotStore, id int, upd models.BotUpdate) error {
	var fields []FieldError

	if upd.Status != nil && !models.ValidStatus(*upd.Status) {
		fields = append(fields, FieldError{"status", "must be active, paused or stopped"})
	}
	if upd.Investment != nil && *upd.Investment <= 0 {
		fields = append(fields, FieldError{"investment", "must be greater than zero"})
	}
	if upd.GridCount != nil && *upd.GridCount < 1 {
		fields = append(fields, FieldError{"gridCount", "must be at least 1"})
	}
	if upd.ProfitPerGrid != nil && (*upd.ProfitPerGrid <= 0 || *upd.ProfitPerGrid >= 1) {
		fields = append(fields, FieldError{"profitPerGrid", "must be a fraction between 0 and 1"})
	}

	if upd.UpperLimit != nil || upd.LowerLimit != nil {
		current, err := bots.GetBot(ctx, id)
		if err != nil {
			return err
		}
		upper := current.UpperLimit
		lower := current.LowerLimit
		if upd.UpperLimit != nil {
			upper = *upd.UpperLimit
		}
		if upd.LowerLimit != nil {
			lower = *upd.LowerLimit
		}
		if upper <= lower {
			fields = append(fields, FieldError{"upperLimit", "must be greater than lowerLimit"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateTransaction(tx *models.Transaction) error {
	var fields []FieldError

	if tx.BotID <= 0 {
		fields = append(fields, FieldError{"botId", "is required"})
	}
	if !models.ValidSide(tx.Side) {
		fields = append(fields, FieldError{"side", "must be BUY or SELL"})
	}
	if tx.Price < 0 {
		fields = append(fields, FieldError{"price", "must not be negative"})
	}
	if tx.Amount < 0 {
		fields = append(fields, FieldError{"amount", "must not be negative"})
	}
	if tx.Value < 0 {
		fields = append(fields, FieldError{"value", "must not be negative"})
	}
	if tx.Fee < 0 {
		fields = append(fields, FieldError{"fee", "must not be negative"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateApiConfig(cfg *models.ApiConfig) error {
	var fields []FieldError

	if cfg.ApiKey == "" {
		fields = append(fields, FieldError{"apiKey", "is required"})
	}
	if cfg.ApiSecret == "" {
		fields = append(fields, FieldError{"apiSecret", "is required"})
	}
	if cfg.Passphrase == "" {
		fields = append(fields, FieldError{"passphrase", "is required"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
