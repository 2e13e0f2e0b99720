package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridpilot/gridpilot-backend/internal/api"
	"github.com/gridpilot/gridpilot-backend/internal/bitget"
	"github.com/gridpilot/gridpilot-backend/internal/config"
	"github.com/gridpilot/gridpilot-backend/internal/db"
	"github.com/gridpilot/gridpilot-backend/internal/notifications"
	"github.com/gridpilot/gridpilot-backend/internal/service"
	"github.com/gridpilot/gridpilot-backend/internal/stats"
	"github.com/gridpilot/gridpilot-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load error")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatal(err)
	}

	cfg.Print()

	st, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("storage init failed")
	}
	defer st.Close()

	agg := stats.NewAggregator(st, st, cfg.SellProfitRate)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)
	svc := service.New(st, agg, notify)

	srv := api.NewServer(svc, st, api.Options{
		Port:            cfg.Port,
		APIKey:          cfg.APIKey,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		DemoUserID:      cfg.DemoUserID,
		VenueCredentials: bitget.Config{
			ApiKey:         cfg.BitgetAPIKey,
			ApiSecret:      cfg.BitgetAPISecret,
			Passphrase:     cfg.BitgetPassphrase,
			IsPaperTrading: cfg.PaperTradingEnabled,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
	logrus.Info("shutdown complete")
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(context.Background(), pool); err != nil {
			pool.Close()
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	default:
		logrus.Info("using in-memory storage, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}
