package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	// Server
	Port            int
	APIKey          string
	CORSAllowOrigin string

	// Identity (stand-in for the auth component, which is out of scope)
	DemoUserID int

	// Storage
	StorageBackend string
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string

	// Exchange credentials (env fallback when no stored ApiConfig exists)
	BitgetAPIKey        string
	BitgetAPISecret     string
	BitgetPassphrase    string
	PaperTradingEnabled bool

	// Accounting
	SellProfitRate float64

	// Notifications
	WebhookURL string
	BotName    string

	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		DemoUserID: envInt("DEMO_USER_ID", 1),

		StorageBackend: envStr("STORAGE_BACKEND", StorageMemory),
		DBHost:         envStr("DB_HOST", "localhost"),
		DBPort:         envInt("DB_PORT", 5432),
		DBName:         envStr("DB_NAME", "gridpilot"),
		DBUser:         envStr("DB_USER", ""),
		DBPassword:     envStr("DB_PASSWORD", ""),

		BitgetAPIKey:        envStr("BITGET_API_KEY", "demo_api_key"),
		BitgetAPISecret:     envStr("BITGET_API_SECRET", "demo_api_secret"),
		BitgetPassphrase:    envStr("BITGET_PASSPHRASE", "demo_passphrase"),
		PaperTradingEnabled: envBool("PAPER_TRADING_ENABLED", true),

		SellProfitRate: envFloat("SELL_PROFIT_RATE", 0.005),

		WebhookURL: envStr("WEBHOOK_URL", ""),
		BotName:    envStr("BOT_NAME", "GridPilot"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.StorageBackend != StorageMemory && c.StorageBackend != StoragePostgres {
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND must be %q or %q, got %q",
			StorageMemory, StoragePostgres, c.StorageBackend))
	}
	if c.StorageBackend == StoragePostgres && c.DBUser == "" {
		errs = append(errs, "DB_USER is required for the postgres backend")
	}
	if c.SellProfitRate <= 0 || c.SellProfitRate >= 1 {
		errs = append(errs, fmt.Sprintf("SELL_PROFIT_RATE must be a fraction between 0 and 1, got %f", c.SellProfitRate))
	}
	if c.DemoUserID < 1 {
		errs = append(errs, "DEMO_USER_ID must be positive")
	}

	if c.APIKey == "" {
		logrus.Warn("API_KEY not set, REST API has no authentication")
	}
	if c.BitgetAPIKey == "demo_api_key" {
		logrus.Warn("BITGET_API_KEY not set, market proxy endpoints will use demo credentials")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	logrus.WithFields(logrus.Fields{
		"port":    c.Port,
		"storage": c.StorageBackend,
		"paper":   c.PaperTradingEnabled,
	}).Info("gridpilot backend configuration")

	if c.PaperTradingEnabled {
		logrus.Info("paper trading mode enabled, simulated-trading header set on venue calls")
	} else {
		logrus.Info("live trading mode")
	}
	if c.WebhookURL != "" {
		logrus.Info("webhook notifications enabled")
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}
