// Package stats keeps per-bot and per-user performance figures consistent
// with the transaction ledger without rescanning it on every read.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/gridpilot/gridpilot-backend/internal/store"
)

// DefaultSellProfitRate is the nominal realized margin credited on each SELL.
// The ledger does not link buy/sell pairs, so a fixed rate stands in for a
// true cost-basis match.
const DefaultSellProfitRate = 0.005

type Aggregator struct {
	bots       store.BotStore
	statsStore store.StatsStore
	profitRate float64
}

func NewAggregator(bots store.BotStore, statsStore store.StatsStore, profitRate float64) *Aggregator {
	if profitRate <= 0 {
		profitRate = DefaultSellProfitRate
	}
	return &Aggregator{bots: bots, statsStore: statsStore, profitRate: profitRate}
}

// Initialize creates the zeroed stats row for a freshly created bot.
// Called exactly once per bot; a second call fails the idempotency guard.
func (a *Aggregator) Initialize(ctx context.Context, botID int) (*models.BotStats, error) {
	return a.statsStore.CreateBotStats(ctx, botID)
}

// OnTransactionAppended applies one ledger event to the owning bot's stats:
// every transaction counts as a completed trade, and a SELL credits
// value × profitRate. The return percentage is recomputed against the bot's
// CURRENT investment, so editing a bot's investment retroactively changes its
// reported return. That coupling keeps stats consistent with latest bot
// state; callers relying on point-in-time returns must snapshot externally.
func (a *Aggregator) OnTransactionAppended(ctx context.Context, tx *models.Transaction) (*models.BotStats, error) {
	st, err := a.statsStore.GetBotStats(ctx, tx.BotID)
	if err != nil {
		// A missing stats row for an existing transaction means the bot was
		// never created through the service. Surfaced, not swallowed.
		return nil, fmt.Errorf("stats for bot %d: %w", tx.BotID, err)
	}

	completed := st.CompletedTrades + 1
	profit := st.TotalProfit
	if tx.Side == models.SideSell {
		profit += tx.Value * a.profitRate
	}

	returnPct := 0.0
	bot, err := a.bots.GetBot(ctx, tx.BotID)
	if err != nil {
		return nil, fmt.Errorf("bot %d: %w", tx.BotID, err)
	}
	if bot.Investment > 0 {
		returnPct = profit / bot.Investment * 100
	}

	return a.statsStore.UpdateBotStats(ctx, tx.BotID, profit, completed, returnPct)
}

// TotalsForUser aggregates across all of a user's bots. Bots without a stats
// row contribute zero rather than failing the aggregate.
func (a *Aggregator) TotalsForUser(ctx context.Context, userID int) (*models.TotalStats, error) {
	bots, err := a.bots.ListBotsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &models.TotalStats{TotalBots: len(bots)}
	for _, b := range bots {
		if b.Status == models.StatusActive {
			out.ActiveBots++
		}
		out.TotalInvestment += b.Investment

		st, err := a.statsStore.GetBotStats(ctx, b.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.TotalProfit += st.TotalProfit
		out.CompletedTrades += st.CompletedTrades
	}
	return out, nil
}
