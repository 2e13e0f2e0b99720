package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func Connect(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logrus.Info("database connection pool ready")
	return p, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS bots (
	id              SERIAL PRIMARY KEY,
	user_id         INTEGER NOT NULL,
	name            TEXT NOT NULL,
	trading_pair    TEXT NOT NULL,
	base_asset      TEXT NOT NULL DEFAULT '',
	quote_asset     TEXT NOT NULL DEFAULT '',
	investment      DOUBLE PRECISION NOT NULL,
	status          TEXT NOT NULL,
	upper_limit     DOUBLE PRECISION NOT NULL,
	lower_limit     DOUBLE PRECISION NOT NULL,
	grid_count      INTEGER NOT NULL,
	profit_per_grid DOUBLE PRECISION NOT NULL,
	stop_loss       DOUBLE PRECISION,
	is_paper_trading BOOLEAN NOT NULL DEFAULT TRUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_active_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bots_user ON bots (user_id);

CREATE TABLE IF NOT EXISTS transactions (
	id        SERIAL PRIMARY KEY,
	bot_id    INTEGER NOT NULL REFERENCES bots (id),
	side      TEXT NOT NULL,
	price     DOUBLE PRECISION NOT NULL,
	amount    DOUBLE PRECISION NOT NULL,
	value     DOUBLE PRECISION NOT NULL,
	fee       DOUBLE PRECISION NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_bot ON transactions (bot_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS bot_stats (
	id                SERIAL PRIMARY KEY,
	bot_id            INTEGER NOT NULL UNIQUE REFERENCES bots (id),
	total_profit      DOUBLE PRECISION NOT NULL DEFAULT 0,
	completed_trades  INTEGER NOT NULL DEFAULT 0,
	return_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_updated      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS api_configs (
	id         SERIAL PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	api_key    TEXT NOT NULL,
	api_secret TEXT NOT NULL,
	passphrase TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_api_configs_user ON api_configs (user_id);
`

// EnsureSchema creates the tables on first start. Idempotent.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
