// Package bitget implements the signed REST client for the Bitget venue.
package bitget

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.bitget.com"

// ExchangeError is a non-2xx venue response, surfaced with status and raw
// body. Never retried automatically: order placement has no idempotency key.
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("bitget API error: %d - %s", e.Status, e.Body)
}

type Config struct {
	ApiKey         string
	ApiSecret      string
	Passphrase     string
	IsPaperTrading bool
}

type Client struct {
	apiKey         string
	apiSecret      string
	passphrase     string
	baseURL        string
	isPaperTrading bool
	httpClient     *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		apiKey:         cfg.ApiKey,
		apiSecret:      cfg.ApiSecret,
		passphrase:     cfg.Passphrase,
		baseURL:        defaultBaseURL,
		isPaperTrading: cfg.IsPaperTrading,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURL points the client at a different host. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// Sign computes base64(HMAC-SHA256(secret, timestamp+method+path+body)).
// Bit-reproducible for fixed inputs; this is the venue's auth contract.
func Sign(secret, timestamp, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) headers(method, path, body string) http.Header {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	h := http.Header{}
	h.Set("ACCESS-KEY", c.apiKey)
	h.Set("ACCESS-SIGN", Sign(c.apiSecret, timestamp, method, path, body))
	h.Set("ACCESS-TIMESTAMP", timestamp)
	h.Set("ACCESS-PASSPHRASE", c.passphrase)
	h.Set("Content-Type", "application/json")
	if c.isPaperTrading {
		h.Set("X-SIMULATED-TRADING", "1")
	} else {
		h.Set("X-SIMULATED-TRADING", "0")
	}
	return h
}

// request signs and executes one call. The signature covers the exact body
// bytes sent, so the payload is marshaled once and reused.
func (c *Client) request(ctx context.Context, method, path string, data any) (json.RawMessage, error) {
	body := ""
	var reader io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = string(raw)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.headers(method, path, body)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures propagate unchanged; retrying is caller policy.
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExchangeError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// GetAccountBalance returns the raw venue account payload.
func (c *Client) GetAccountBalance(ctx context.Context) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/mix/v1/account/accounts", nil)
}

// GetTickerPrice returns the raw ticker payload for a symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/mix/v1/market/ticker?symbol="+symbol, nil)
}

type marketOrder struct {
	Symbol     string `json:"symbol"`
	MarginCoin string `json:"marginCoin"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	Size       string `json:"size"`
}

// PlaceMarketOrder submits a market order. Size is not validated against
// venue minimums here; callers check symbol rules first.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side string, size float64) (json.RawMessage, error) {
	order := marketOrder{
		Symbol:     symbol,
		MarginCoin: marginCoin(symbol),
		Side:       side,
		OrderType:  "market",
		Size:       strconv.FormatFloat(size, 'f', -1, 64),
	}
	return c.request(ctx, http.MethodPost, "/api/mix/v1/order/placeOrder", order)
}

// GetTradingPairs returns the raw contracts listing.
func (c *Client) GetTradingPairs(ctx context.Context) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, "/api/mix/v1/market/contracts", nil)
}

// GetHistoricalTrades returns recent fills for a symbol, bounded by limit.
func (c *Client) GetHistoricalTrades(ctx context.Context, symbol string, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	path := fmt.Sprintf("/api/mix/v1/market/fills?symbol=%s&limit=%d", symbol, limit)
	return c.request(ctx, http.MethodGet, path, nil)
}

// GetSymbolRules finds a symbol's trading rules by filtering the contracts
// listing; the venue has no dedicated endpoint for a single symbol.
func (c *Client) GetSymbolRules(ctx context.Context, symbol string) (json.RawMessage, error) {
	raw, err := c.request(ctx, http.MethodGet, "/api/mix/v1/market/contracts", nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("parse contracts: %w", err)
	}

	for _, entry := range listing.Data {
		var probe struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(entry, &probe); err != nil {
			continue
		}
		if probe.Symbol == symbol {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("symbol %s not found in contracts listing", symbol)
}

type GridParams struct {
	Symbol     string
	UpperPrice float64
	LowerPrice float64
	GridNum    int
	Size       float64
}

// GridBotAck acknowledges a grid-bot creation request. Simulated is always
// true for a locally synthesized ack: the venue exposes no stable grid-order
// API yet, so this order id does NOT represent a live venue-side grid.
type GridBotAck struct {
	Simulated bool   `json:"simulated"`
	ClientOID string `json:"clientOid"`
	OrderID   string `json:"orderId"`
	State     string `json:"state"`
}

// CreateGridBot accepts grid parameters and returns a synthesized ack with a
// generated order identifier. Callers must not treat it as venue confirmation.
func (c *Client) CreateGridBot(_ context.Context, params GridParams) (*GridBotAck, error) {
	if params.UpperPrice <= params.LowerPrice {
		return nil, fmt.Errorf("upper price %.2f must exceed lower price %.2f",
			params.UpperPrice, params.LowerPrice)
	}
	if params.GridNum < 1 {
		return nil, fmt.Errorf("grid num must be at least 1, got %d", params.GridNum)
	}

	return &GridBotAck{
		Simulated: true,
		ClientOID: fmt.Sprintf("grid_%d", time.Now().UnixMilli()),
		OrderID:   fmt.Sprintf("sim_grid_%06d", rand.Intn(1000000)),
		State:     "active",
	}, nil
}

// marginCoin derives the margin coin from a futures symbol like BTCUSDT_UMCBL.
func marginCoin(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '_' {
			return symbol[i+1:]
		}
	}
	return symbol
}
