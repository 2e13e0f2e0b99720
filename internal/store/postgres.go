package store

import (
	"context"
	"errors"

	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable backend behind the same Store interface
// the in-memory reference implements.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// --- BotStore ---

func (s *PostgresStore) CreateBot(ctx context.Context, bot *models.Bot) (*models.Bot, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO bots
		 (user_id, name, trading_pair, base_asset, quote_asset, investment,
		  status, upper_limit, lower_limit, grid_count, profit_per_grid,
		  stop_loss, is_paper_trading, created_at, last_active_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
		 RETURNING *`,
		bot.UserID, bot.Name, bot.TradingPair, bot.BaseAsset, bot.QuoteAsset,
		bot.Investment, bot.Status, bot.UpperLimit, bot.LowerLimit,
		bot.GridCount, bot.ProfitPerGrid, bot.StopLoss, bot.IsPaperTrading,
	)
	return scanBot(row)
}

func (s *PostgresStore) GetBot(ctx context.Context, id int) (*models.Bot, error) {
	row := s.pool.QueryRow(ctx, `SELECT * FROM bots WHERE id = $1`, id)
	b, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *PostgresStore) ListBotsByUser(ctx context.Context, userID int) ([]models.Bot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM bots WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBots(rows)
}

func (s *PostgresStore) UpdateBot(ctx context.Context, id int, upd models.BotUpdate) (*models.Bot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT * FROM bots WHERE id = $1 FOR UPDATE`, id)
	b, err := scanBot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	applyBotUpdate(b, upd)

	query := `UPDATE bots SET
		 name=$2, trading_pair=$3, base_asset=$4, quote_asset=$5, investment=$6,
		 status=$7, upper_limit=$8, lower_limit=$9, grid_count=$10,
		 profit_per_grid=$11, stop_loss=$12, is_paper_trading=$13
		 WHERE id=$1 RETURNING *`
	if upd.Status != nil {
		query = `UPDATE bots SET
		 name=$2, trading_pair=$3, base_asset=$4, quote_asset=$5, investment=$6,
		 status=$7, upper_limit=$8, lower_limit=$9, grid_count=$10,
		 profit_per_grid=$11, stop_loss=$12, is_paper_trading=$13,
		 last_active_at=NOW()
		 WHERE id=$1 RETURNING *`
	}

	row = tx.QueryRow(ctx, query,
		id, b.Name, b.TradingPair, b.BaseAsset, b.QuoteAsset, b.Investment,
		b.Status, b.UpperLimit, b.LowerLimit, b.GridCount, b.ProfitPerGrid,
		b.StopLoss, b.IsPaperTrading,
	)
	out, err := scanBot(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) DeleteBot(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- TransactionLedger ---

func (s *PostgresStore) AppendTransaction(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bots WHERE id = $1)`, t.BotID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO transactions (bot_id, side, price, amount, value, fee, timestamp)
		 VALUES ($1,$2,$3,$4,$5,$6,NOW())
		 RETURNING *`,
		t.BotID, t.Side, t.Price, t.Amount, t.Value, t.Fee,
	)
	out, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) TransactionsByBot(ctx context.Context, botID int) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM transactions WHERE bot_id = $1 ORDER BY timestamp DESC, id DESC`,
		botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *PostgresStore) RecentTransactionsByBot(ctx context.Context, botID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		return []models.Transaction{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT * FROM transactions WHERE bot_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		botID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// --- StatsStore ---

func (s *PostgresStore) CreateBotStats(ctx context.Context, botID int) (*models.BotStats, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bot_stats WHERE bot_id = $1)`, botID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO bot_stats (bot_id, total_profit, completed_trades, return_percentage, last_updated)
		 VALUES ($1, 0, 0, 0, NOW())
		 RETURNING *`, botID)
	return scanBotStats(row)
}

func (s *PostgresStore) GetBotStats(ctx context.Context, botID int) (*models.BotStats, error) {
	row := s.pool.QueryRow(ctx, `SELECT * FROM bot_stats WHERE bot_id = $1`, botID)
	st, err := scanBotStats(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

func (s *PostgresStore) UpdateBotStats(ctx context.Context, botID int, totalProfit float64, completedTrades int, returnPercentage float64) (*models.BotStats, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE bot_stats
		 SET total_profit=$2, completed_trades=$3, return_percentage=$4, last_updated=NOW()
		 WHERE bot_id=$1 RETURNING *`,
		botID, totalProfit, completedTrades, returnPercentage)
	st, err := scanBotStats(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

func (s *PostgresStore) DeleteBotStats(ctx context.Context, botID int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bot_stats WHERE bot_id = $1`, botID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- ApiConfigStore ---

func (s *PostgresStore) GetApiConfig(ctx context.Context, userID int) (*models.ApiConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT * FROM api_configs WHERE user_id = $1 ORDER BY id ASC LIMIT 1`, userID)
	c, err := scanApiConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) CreateApiConfig(ctx context.Context, cfg *models.ApiConfig) (*models.ApiConfig, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO api_configs (user_id, api_key, api_secret, passphrase, created_at)
		 VALUES ($1,$2,$3,$4,NOW())
		 RETURNING *`,
		cfg.UserID, cfg.ApiKey, cfg.ApiSecret, cfg.Passphrase)
	return scanApiConfig(row)
}

func (s *PostgresStore) UpdateApiConfig(ctx context.Context, id int, apiKey, apiSecret, passphrase string) (*models.ApiConfig, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE api_configs SET
		 api_key = COALESCE(NULLIF($2,''), api_key),
		 api_secret = COALESCE(NULLIF($3,''), api_secret),
		 passphrase = COALESCE(NULLIF($4,''), passphrase)
		 WHERE id = $1 RETURNING *`,
		id, apiKey, apiSecret, passphrase)
	c, err := scanApiConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// --- lifecycle ---

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBot(row scannable) (*models.Bot, error) {
	var b models.Bot
	err := row.Scan(
		&b.ID, &b.UserID, &b.Name, &b.TradingPair, &b.BaseAsset, &b.QuoteAsset,
		&b.Investment, &b.Status, &b.UpperLimit, &b.LowerLimit, &b.GridCount,
		&b.ProfitPerGrid, &b.StopLoss, &b.IsPaperTrading,
		&b.CreatedAt, &b.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBots(rows rowsIter) ([]models.Bot, error) {
	out := make([]models.Bot, 0)
	for rows.Next() {
		var b models.Bot
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.Name, &b.TradingPair, &b.BaseAsset, &b.QuoteAsset,
			&b.Investment, &b.Status, &b.UpperLimit, &b.LowerLimit, &b.GridCount,
			&b.ProfitPerGrid, &b.StopLoss, &b.IsPaperTrading,
			&b.CreatedAt, &b.LastActiveAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanTransaction(row scannable) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.BotID, &t.Side, &t.Price, &t.Amount, &t.Value, &t.Fee, &t.Timestamp)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTransactions(rows rowsIter) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.BotID, &t.Side, &t.Price, &t.Amount, &t.Value, &t.Fee, &t.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanBotStats(row scannable) (*models.BotStats, error) {
	var st models.BotStats
	err := row.Scan(&st.ID, &st.BotID, &st.TotalProfit, &st.CompletedTrades, &st.ReturnPercentage, &st.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanApiConfig(row scannable) (*models.ApiConfig, error) {
	var c models.ApiConfig
	err := row.Scan(&c.ID, &c.UserID, &c.ApiKey, &c.ApiSecret, &c.Passphrase, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
