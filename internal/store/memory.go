package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gridpilot/gridpilot-backend/internal/models"
)

// MemoryStore is the reference in-memory backend. A single mutex guards all
// collections, which keeps any two causally dependent writes ordered for
// concurrent readers.
type MemoryStore struct {
	mu sync.RWMutex

	bots         map[int]*models.Bot
	transactions map[int]*models.Transaction
	botStats     map[int]*models.BotStats // keyed by stats id
	apiConfigs   map[int]*models.ApiConfig

	nextBotID    int
	nextTxID     int
	nextStatsID  int
	nextConfigID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bots:         make(map[int]*models.Bot),
		transactions: make(map[int]*models.Transaction),
		botStats:     make(map[int]*models.BotStats),
		apiConfigs:   make(map[int]*models.ApiConfig),
		nextBotID:    1,
		nextTxID:     1,
		nextStatsID:  1,
		nextConfigID: 1,
	}
}

// --- BotStore ---

func (s *MemoryStore) CreateBot(_ context.Context, bot *models.Bot) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b := *bot
	b.ID = s.nextBotID
	s.nextBotID++
	b.CreatedAt = now
	b.LastActiveAt = now
	s.bots[b.ID] = &b

	out := b
	return &out, nil
}

func (s *MemoryStore) GetBot(_ context.Context, id int) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bots[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (s *MemoryStore) ListBotsByUser(_ context.Context, userID int) ([]models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Bot, 0)
	for _, b := range s.bots {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	// Ids are sequential, so ascending id is insertion order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateBot(_ context.Context, id int, upd models.BotUpdate) (*models.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bots[id]
	if !ok {
		return nil, ErrNotFound
	}

	applyBotUpdate(b, upd)
	if upd.Status != nil {
		b.LastActiveAt = time.Now()
	}

	out := *b
	return &out, nil
}

func (s *MemoryStore) DeleteBot(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[id]; !ok {
		return ErrNotFound
	}
	delete(s.bots, id)
	return nil
}

func applyBotUpdate(b *models.Bot, upd models.BotUpdate) {
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.TradingPair != nil {
		b.TradingPair = *upd.TradingPair
	}
	if upd.BaseAsset != nil {
		b.BaseAsset = *upd.BaseAsset
	}
	if upd.QuoteAsset != nil {
		b.QuoteAsset = *upd.QuoteAsset
	}
	if upd.Investment != nil {
		b.Investment = *upd.Investment
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.UpperLimit != nil {
		b.UpperLimit = *upd.UpperLimit
	}
	if upd.LowerLimit != nil {
		b.LowerLimit = *upd.LowerLimit
	}
	if upd.GridCount != nil {
		b.GridCount = *upd.GridCount
	}
	if upd.ProfitPerGrid != nil {
		b.ProfitPerGrid = *upd.ProfitPerGrid
	}
	if upd.StopLoss != nil {
		b.StopLoss = upd.StopLoss
	}
	if upd.IsPaperTrading != nil {
		b.IsPaperTrading = *upd.IsPaperTrading
	}
}

// --- TransactionLedger ---

func (s *MemoryStore) AppendTransaction(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bots[tx.BotID]; !ok {
		return nil, ErrNotFound
	}

	t := *tx
	t.ID = s.nextTxID
	s.nextTxID++
	t.Timestamp = time.Now()
	s.transactions[t.ID] = &t

	out := t
	return &out, nil
}

func (s *MemoryStore) TransactionsByBot(_ context.Context, botID int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0)
	for _, t := range s.transactions {
		if t.BotID == botID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) RecentTransactionsByBot(ctx context.Context, botID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		return []models.Transaction{}, nil
	}
	all, err := s.TransactionsByBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// --- StatsStore ---

func (s *MemoryStore) CreateBotStats(_ context.Context, botID int) (*models.BotStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findStatsLocked(botID) != nil {
		return nil, ErrAlreadyExists
	}

	st := &models.BotStats{
		ID:          s.nextStatsID,
		BotID:       botID,
		LastUpdated: time.Now(),
	}
	s.nextStatsID++
	s.botStats[st.ID] = st

	out := *st
	return &out, nil
}

func (s *MemoryStore) GetBotStats(_ context.Context, botID int) (*models.BotStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.findStatsLocked(botID)
	if st == nil {
		return nil, ErrNotFound
	}
	out := *st
	return &out, nil
}

func (s *MemoryStore) UpdateBotStats(_ context.Context, botID int, totalProfit float64, completedTrades int, returnPercentage float64) (*models.BotStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.findStatsLocked(botID)
	if st == nil {
		return nil, ErrNotFound
	}
	st.TotalProfit = totalProfit
	st.CompletedTrades = completedTrades
	st.ReturnPercentage = returnPercentage
	st.LastUpdated = time.Now()

	out := *st
	return &out, nil
}

func (s *MemoryStore) DeleteBotStats(_ context.Context, botID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.findStatsLocked(botID)
	if st == nil {
		return ErrNotFound
	}
	delete(s.botStats, st.ID)
	return nil
}

func (s *MemoryStore) findStatsLocked(botID int) *models.BotStats {
	for _, st := range s.botStats {
		if st.BotID == botID {
			return st
		}
	}
	return nil
}

// --- ApiConfigStore ---

func (s *MemoryStore) GetApiConfig(_ context.Context, userID int) (*models.ApiConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.apiConfigs {
		if c.UserID == userID {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateApiConfig(_ context.Context, cfg *models.ApiConfig) (*models.ApiConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	c.ID = s.nextConfigID
	s.nextConfigID++
	c.CreatedAt = time.Now()
	s.apiConfigs[c.ID] = &c

	out := c
	return &out, nil
}

func (s *MemoryStore) UpdateApiConfig(_ context.Context, id int, apiKey, apiSecret, passphrase string) (*models.ApiConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.apiConfigs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if apiKey != "" {
		c.ApiKey = apiKey
	}
	if apiSecret != "" {
		c.ApiSecret = apiSecret
	}
	if passphrase != "" {
		c.Passphrase = passphrase
	}

	out := *c
	return &out, nil
}

// --- lifecycle ---

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() {}
