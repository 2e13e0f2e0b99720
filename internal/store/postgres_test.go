package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gridpilot/gridpilot-backend/internal/db"
	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/gridpilot/gridpilot-backend/internal/testutil"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	pool := testutil.SetupPool(t)

	ctx := context.Background()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `TRUNCATE transactions, bot_stats, bots, api_configs RESTART IDENTITY CASCADE`)
	})

	return NewPostgresStore(pool)
}

func TestPostgresStore_BotRoundTrip(t *testing.T) {
	st := setupPostgres(t)
	ctx := context.Background()

	created, err := st.CreateBot(ctx, &models.Bot{
		UserID:        1,
		Name:          "pg bot",
		TradingPair:   "BTC/USDT",
		BaseAsset:     "BTC",
		QuoteAsset:    "USDT",
		Investment:    100,
		Status:        models.StatusActive,
		UpperLimit:    30000,
		LowerLimit:    25000,
		GridCount:     10,
		ProfitPerGrid: 0.005,
	})
	if err != nil {
		t.Fatalf("create bot: %v", err)
	}
	if created.ID < 1 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}

	got, err := st.GetBot(ctx, created.ID)
	if err != nil {
		t.Fatalf("get bot: %v", err)
	}
	if got.Name != "pg bot" || got.Investment != 100 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := st.GetBot(ctx, created.ID+1000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	status := models.StatusPaused
	updated, err := st.UpdateBot(ctx, created.ID, models.BotUpdate{Status: &status})
	if err != nil {
		t.Fatalf("update bot: %v", err)
	}
	if updated.Status != models.StatusPaused {
		t.Fatalf("expected paused, got %q", updated.Status)
	}
	if updated.LastActiveAt.Before(created.LastActiveAt) {
		t.Fatal("expected last_active_at refreshed on status change")
	}
}

func TestPostgresStore_LedgerAndStats(t *testing.T) {
	st := setupPostgres(t)
	ctx := context.Background()

	bot, err := st.CreateBot(ctx, &models.Bot{
		UserID: 1, Name: "ledger bot", TradingPair: "ETH/USDT",
		Investment: 50, Status: models.StatusActive,
		UpperLimit: 4000, LowerLimit: 3000, GridCount: 5, ProfitPerGrid: 0.01,
	})
	if err != nil {
		t.Fatalf("create bot: %v", err)
	}

	if _, err := st.AppendTransaction(ctx, &models.Transaction{
		BotID: bot.ID + 999, Side: models.SideBuy,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown bot, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := st.AppendTransaction(ctx, &models.Transaction{
			BotID: bot.ID, Side: models.SideBuy, Price: 3500, Amount: 0.1, Value: 350,
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	txs, err := st.TransactionsByBot(ctx, bot.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	recent, err := st.RecentTransactionsByBot(ctx, bot.ID, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent, got %d", len(recent))
	}
	empty, err := st.RecentTransactionsByBot(ctx, bot.ID, 0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list for limit 0, got %d entries, err %v", len(empty), err)
	}

	if _, err := st.CreateBotStats(ctx, bot.ID); err != nil {
		t.Fatalf("create stats: %v", err)
	}
	if _, err := st.CreateBotStats(ctx, bot.ID); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	updated, err := st.UpdateBotStats(ctx, bot.ID, 1.5, 3, 3.0)
	if err != nil {
		t.Fatalf("update stats: %v", err)
	}
	if updated.TotalProfit != 1.5 || updated.CompletedTrades != 3 {
		t.Fatalf("stats mismatch: %+v", updated)
	}
}

func TestPostgresStore_ApiConfig(t *testing.T) {
	st := setupPostgres(t)
	ctx := context.Background()

	if _, err := st.GetApiConfig(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := st.CreateApiConfig(ctx, &models.ApiConfig{
		UserID: 1, ApiKey: "abcd1234efgh", ApiSecret: "secret", Passphrase: "pass",
	})
	if err != nil {
		t.Fatalf("create config: %v", err)
	}

	updated, err := st.UpdateApiConfig(ctx, created.ID, "wxyz9876lmno", "", "")
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if updated.ApiKey != "wxyz9876lmno" {
		t.Fatalf("expected new key, got %q", updated.ApiKey)
	}
	if updated.ApiSecret != "secret" || updated.Passphrase != "pass" {
		t.Fatalf("empty fields must keep stored values: %+v", updated)
	}
}
