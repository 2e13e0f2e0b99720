package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/gridpilot/gridpilot-backend/internal/bitget"
	"github.com/gridpilot/gridpilot-backend/internal/service"
	"github.com/gridpilot/gridpilot-backend/internal/store"
)

const maxQueryLimit = 1000

// Options configures the REST server. VenueCredentials is the fallback
// used for market proxy calls when the demo user has no stored ApiConfig.
type Options struct {
	Port             int
	APIKey           string
	CORSAllowOrigin  string
	DemoUserID       int
	VenueCredentials bitget.Config
}

type Server struct {
	svc        *service.BotService
	store      store.Store
	opts       Options
	httpServer *http.Server

	// newVenueClient is swapped in tests to point at a stub venue.
	newVenueClient func(bitget.Config) *bitget.Client
}

func NewServer(svc *service.BotService, st store.Store, opts Options) *Server {
	s := &Server{
		svc:            svc,
		store:          st,
		opts:           opts,
		newVenueClient: bitget.NewClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Routes builds the full handler chain. Exposed so tests can drive the
// router through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	allowOrigin := s.opts.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.authMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/bots", s.handleListBots)
		r.Post("/bots", s.handleCreateBot)
		r.Get("/bots/{id}", s.handleGetBot)
		r.Patch("/bots/{id}", s.handleUpdateBot)
		r.Get("/bots/{id}/transactions", s.handleBotTransactions)
		r.Get("/bots/{id}/stats", s.handleBotStats)
		r.Get("/bots/{id}/grid", s.handleBotGrid)

		r.Post("/transactions", s.handleCreateTransaction)

		r.Get("/stats", s.handleTotalStats)

		r.Get("/api-config", s.handleGetApiConfig)
		r.Post("/api-config", s.handleSaveApiConfig)

		r.Get("/market/pairs", s.handleMarketPairs)
		r.Get("/market/price/{symbol}", s.handleMarketPrice)
		r.Get("/market/balance", s.handleMarketBalance)
		r.Get("/market/history/{symbol}", s.handleMarketHistory)
		r.Get("/market/rules/{symbol}", s.handleMarketRules)
	})

	return r
}

func (s *Server) Start() error {
	logrus.WithField("addr", s.httpServer.Addr).Info("REST API server started")
	if s.opts.APIKey != "" {
		logrus.Info("authentication enabled (Bearer token)")
	} else {
		logrus.Info("authentication disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.opts.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- request helpers ---

func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError maps domain failures onto HTTP statuses. Unexpected
// errors are logged and never leaked to the caller.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"errors": verr.Fields,
		})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "already exists")
		return
	}

	var eerr *bitget.ExchangeError
	if errors.As(err, &eerr) {
		writeError(w, http.StatusBadGateway, eerr.Error())
		return
	}

	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
