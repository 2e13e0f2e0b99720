package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/gridpilot/gridpilot-backend/internal/store"
)

func seedBot(t *testing.T, st *store.MemoryStore) *models.Bot {
	t.Helper()
	bot, err := st.CreateBot(context.Background(), &models.Bot{
		UserID: 1, Name: "seed", TradingPair: "BTC/USDT",
		Investment: 100, Status: models.StatusActive,
		UpperLimit: 30000, LowerLimit: 25000, GridCount: 10, ProfitPerGrid: 0.005,
	})
	if err != nil {
		t.Fatal(err)
	}
	return bot
}

func TestInitialize_IdempotencyGuard(t *testing.T) {
	st := store.NewMemoryStore()
	agg := NewAggregator(st, st, 0)
	ctx := context.Background()

	bot := seedBot(t, st)

	created, err := agg.Initialize(ctx, bot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if created.TotalProfit != 0 || created.CompletedTrades != 0 || created.ReturnPercentage != 0 {
		t.Fatalf("expected zeroed stats, got %+v", created)
	}

	if _, err := agg.Initialize(ctx, bot.ID); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("second Initialize should hit the guard, got %v", err)
	}
}

func TestOnTransactionAppended_MissingStatsRow(t *testing.T) {
	st := store.NewMemoryStore()
	agg := NewAggregator(st, st, 0)

	bot := seedBot(t, st) // no stats row created

	_, err := agg.OnTransactionAppended(context.Background(), &models.Transaction{
		BotID: bot.ID, Side: models.SideSell, Value: 100,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a bot without stats, got %v", err)
	}
}

func TestOnTransactionAppended_ConfigurableRate(t *testing.T) {
	st := store.NewMemoryStore()
	agg := NewAggregator(st, st, 0.01)
	ctx := context.Background()

	bot := seedBot(t, st)
	if _, err := agg.Initialize(ctx, bot.ID); err != nil {
		t.Fatal(err)
	}

	updated, err := agg.OnTransactionAppended(ctx, &models.Transaction{
		BotID: bot.ID, Side: models.SideSell, Value: 200,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.TotalProfit != 2 { // 200 × 0.01
		t.Fatalf("totalProfit = %f, want 2", updated.TotalProfit)
	}
	if updated.ReturnPercentage != 2 { // 2 / 100 × 100
		t.Fatalf("returnPercentage = %f, want 2", updated.ReturnPercentage)
	}
}

func TestTotalsForUser_ToleratesMissingStats(t *testing.T) {
	st := store.NewMemoryStore()
	agg := NewAggregator(st, st, 0)
	ctx := context.Background()

	withStats := seedBot(t, st)
	if _, err := agg.Initialize(ctx, withStats.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := agg.OnTransactionAppended(ctx, &models.Transaction{
		BotID: withStats.ID, Side: models.SideSell, Value: 100,
	}); err != nil {
		t.Fatal(err)
	}

	// Second bot deliberately has no stats row
	seedBot(t, st)

	totals, err := agg.TotalsForUser(ctx, 1)
	if err != nil {
		t.Fatalf("aggregate must tolerate a missing stats row: %v", err)
	}
	if totals.TotalBots != 2 {
		t.Fatalf("totalBots = %d", totals.TotalBots)
	}
	if totals.CompletedTrades != 1 {
		t.Fatalf("completedTrades = %d", totals.CompletedTrades)
	}
	if totals.TotalInvestment != 200 {
		t.Fatalf("totalInvestment = %f", totals.TotalInvestment)
	}
}
