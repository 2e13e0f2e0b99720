package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gridpilot/gridpilot-backend/internal/bitget"
	"github.com/gridpilot/gridpilot-backend/internal/models"
	"github.com/gridpilot/gridpilot-backend/internal/service"
	"github.com/gridpilot/gridpilot-backend/internal/stats"
	"github.com/gridpilot/gridpilot-backend/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewMemoryStore()
	agg := stats.NewAggregator(st, st, 0.005)
	svc := service.New(st, agg, nil)
	return NewServer(svc, st, Options{
		Port:            0,
		CORSAllowOrigin: "*",
		DemoUserID:      1,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func validBotBody() map[string]any {
	return map[string]any{
		"name":          "btc range",
		"tradingPair":   "BTC/USDT",
		"investment":    100.0,
		"upperLimit":    30000.0,
		"lowerLimit":    25000.0,
		"gridCount":     10,
		"profitPerGrid": 0.005,
	}
}

func TestCreateBot_InitializesZeroedStats(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var bot models.Bot
	if err := json.Unmarshal(rr.Body.Bytes(), &bot); err != nil {
		t.Fatalf("decode bot: %v", err)
	}
	if bot.ID < 1 {
		t.Fatalf("expected assigned id, got %d", bot.ID)
	}
	if bot.BaseAsset != "BTC" || bot.QuoteAsset != "USDT" {
		t.Fatalf("expected pair decomposition, got %q/%q", bot.BaseAsset, bot.QuoteAsset)
	}
	if bot.Status != models.StatusActive {
		t.Fatalf("expected default status active, got %q", bot.Status)
	}

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/stats", bot.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for stats, got %d", rr.Code)
	}
	var st models.BotStats
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.TotalProfit != 0 || st.CompletedTrades != 0 || st.ReturnPercentage != 0 {
		t.Fatalf("expected zeroed stats, got %+v", st)
	}
}

func TestCreateBot_ValidationErrorsArray(t *testing.T) {
	h := newTestServer(t).Routes()

	body := validBotBody()
	body["investment"] = -5.0
	delete(body, "name")

	rr := doJSON(t, h, http.MethodPost, "/api/bots", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp struct {
		Error  string `json:"error"`
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if len(resp.Errors) < 2 {
		t.Fatalf("expected errors for name and investment, got %+v", resp.Errors)
	}
	seen := map[string]bool{}
	for _, fe := range resp.Errors {
		seen[fe.Field] = true
	}
	if !seen["name"] || !seen["investment"] {
		t.Fatalf("expected name and investment flagged, got %+v", resp.Errors)
	}
}

func TestCreateBot_InvertedRangeRejected(t *testing.T) {
	h := newTestServer(t).Routes()

	body := validBotBody()
	body["upperLimit"] = 25000.0
	body["lowerLimit"] = 30000.0

	rr := doJSON(t, h, http.MethodPost, "/api/bots", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "upperLimit") {
		t.Fatalf("expected upperLimit in error body, got %s", rr.Body.String())
	}
}

func TestGetBot_NotFound(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodGet, "/api/bots/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing bot, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/bots/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rr.Code)
	}
}

func TestUpdateBot_PartialAndNotFound(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	var bot models.Bot
	json.Unmarshal(rr.Body.Bytes(), &bot)

	rr = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/bots/%d", bot.ID),
		map[string]any{"status": "paused"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated models.Bot
	json.Unmarshal(rr.Body.Bytes(), &updated)
	if updated.Status != models.StatusPaused {
		t.Fatalf("expected paused, got %q", updated.Status)
	}
	if updated.Investment != bot.Investment {
		t.Fatalf("untouched field changed: %f", updated.Investment)
	}

	rr = doJSON(t, h, http.MethodPatch, "/api/bots/999",
		map[string]any{"status": "paused"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRecordTransaction_SellUpdatesStats(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	var bot models.Bot
	json.Unmarshal(rr.Body.Bytes(), &bot)

	rr = doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
		"botId":  bot.ID,
		"side":   "SELL",
		"price":  100.0,
		"amount": 1.0,
		"value":  100.0,
		"fee":    0.1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/stats", bot.ID), nil)
	var st models.BotStats
	json.Unmarshal(rr.Body.Bytes(), &st)
	if st.CompletedTrades != 1 {
		t.Fatalf("expected 1 completed trade, got %d", st.CompletedTrades)
	}
	wantProfit := 100.0 * 0.005
	if st.TotalProfit != wantProfit {
		t.Fatalf("expected profit %f, got %f", wantProfit, st.TotalProfit)
	}
	wantReturn := wantProfit / 100.0 * 100.0
	if st.ReturnPercentage != wantReturn {
		t.Fatalf("expected return %f, got %f", wantReturn, st.ReturnPercentage)
	}
}

func TestRecordTransaction_UnknownBot(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
		"botId": 42, "side": "BUY", "price": 1.0, "amount": 1.0, "value": 1.0,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bot, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBotTransactions_LimitZeroIsEmpty(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	var bot models.Bot
	json.Unmarshal(rr.Body.Bytes(), &bot)

	for i := 0; i < 3; i++ {
		doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
			"botId": bot.ID, "side": "BUY", "price": 1.0, "amount": 1.0, "value": 1.0,
		})
	}

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/transactions?limit=0", bot.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var txs []models.Transaction
	json.Unmarshal(rr.Body.Bytes(), &txs)
	if len(txs) != 0 {
		t.Fatalf("expected empty list for limit=0, got %d entries", len(txs))
	}

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/transactions?limit=2", bot.ID), nil)
	json.Unmarshal(rr.Body.Bytes(), &txs)
	if len(txs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(txs))
	}

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/transactions", bot.ID), nil)
	json.Unmarshal(rr.Body.Bytes(), &txs)
	if len(txs) != 3 {
		t.Fatalf("expected all 3 entries without limit, got %d", len(txs))
	}
}

func TestBotGrid(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	var bot models.Bot
	json.Unmarshal(rr.Body.Bytes(), &bot)

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/bots/%d/grid", bot.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var plan service.GridPlan
	if err := json.Unmarshal(rr.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.StepSize != 500 {
		t.Fatalf("expected step 500, got %f", plan.StepSize)
	}
	if len(plan.Levels) != 5 || plan.Levels[0] != 30000 || plan.Levels[4] != 25000 {
		t.Fatalf("unexpected levels: %v", plan.Levels)
	}
	if plan.PotentialProfit != 100*0.005*10*0.5 {
		t.Fatalf("unexpected potential profit: %f", plan.PotentialProfit)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/bots/999/grid", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing bot, got %d", rr.Code)
	}
}

func TestApiConfig_MaskedResponses(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodGet, "/api/api-config", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any config stored, got %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/api-config", map[string]any{
		"apiKey":     "abcd1234efgh",
		"apiSecret":  "topsecretvalue",
		"passphrase": "hunter2pass",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	created := rr.Body.String()
	if !strings.Contains(created, `"abcd...efgh"`) {
		t.Fatalf("expected masked key in response, got %s", created)
	}
	for _, secret := range []string{"abcd1234efgh", "topsecretvalue", "hunter2pass"} {
		if strings.Contains(created, secret) {
			t.Fatalf("verbatim credential %q leaked in response: %s", secret, created)
		}
	}

	rr = doJSON(t, h, http.MethodGet, "/api/api-config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after store, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"abcd...efgh"`) {
		t.Fatalf("expected masked key, got %s", body)
	}
	if strings.Contains(body, "topsecretvalue") || strings.Contains(body, "hunter2pass") {
		t.Fatalf("verbatim secret leaked: %s", body)
	}
}

func TestApiConfig_MissingFieldsRejected(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodPost, "/api/api-config", map[string]any{
		"apiKey": "abcd1234efgh",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "apiSecret") {
		t.Fatalf("expected apiSecret flagged, got %s", rr.Body.String())
	}
}

func TestTotalStats(t *testing.T) {
	h := newTestServer(t).Routes()

	doJSON(t, h, http.MethodPost, "/api/bots", validBotBody())
	second := validBotBody()
	second["investment"] = 250.0
	second["status"] = "paused"
	doJSON(t, h, http.MethodPost, "/api/bots", second)

	rr := doJSON(t, h, http.MethodGet, "/api/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var totals models.TotalStats
	json.Unmarshal(rr.Body.Bytes(), &totals)
	if totals.TotalBots != 2 || totals.ActiveBots != 1 {
		t.Fatalf("expected 2 bots / 1 active, got %+v", totals)
	}
	if totals.TotalInvestment != 350 {
		t.Fatalf("expected investment 350, got %f", totals.TotalInvestment)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Routes()

	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Services.Storage != "connected" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestMarketPrice_UsesStoredCredentials(t *testing.T) {
	srv := newTestServer(t)

	venue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"key":%q,"paper":%q}`,
			r.Header.Get("ACCESS-KEY"), r.Header.Get("X-SIMULATED-TRADING"))
	}))
	defer venue.Close()

	srv.newVenueClient = func(cfg bitget.Config) *bitget.Client {
		c := bitget.NewClient(cfg)
		c.SetBaseURL(venue.URL)
		return c
	}
	srv.opts.VenueCredentials = bitget.Config{
		ApiKey: "env_key", ApiSecret: "env_secret", Passphrase: "env_pass",
		IsPaperTrading: true,
	}
	h := srv.Routes()

	rr := doJSON(t, h, http.MethodGet, "/api/market/price/BTCUSDT_UMCBL", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "env_key") {
		t.Fatalf("expected env fallback credentials, got %s", rr.Body.String())
	}

	doJSON(t, h, http.MethodPost, "/api/api-config", map[string]any{
		"apiKey":     "stored_key_0001",
		"apiSecret":  "stored_secret",
		"passphrase": "stored_pass",
	})

	rr = doJSON(t, h, http.MethodGet, "/api/market/price/BTCUSDT_UMCBL", nil)
	if !strings.Contains(rr.Body.String(), "stored_key_0001") {
		t.Fatalf("expected stored credentials to win, got %s", rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/api/market/price/BTCUSDT_UMCBL?paper=false", nil)
	if !strings.Contains(rr.Body.String(), `"paper":"0"`) {
		t.Fatalf("expected live header for paper=false, got %s", rr.Body.String())
	}
}

func TestMarketPairs_VenueErrorSurfaced(t *testing.T) {
	srv := newTestServer(t)

	venue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"40001","msg":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer venue.Close()

	srv.newVenueClient = func(cfg bitget.Config) *bitget.Client {
		c := bitget.NewClient(cfg)
		c.SetBaseURL(venue.URL)
		return c
	}
	h := srv.Routes()

	rr := doJSON(t, h, http.MethodGet, "/api/market/pairs", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for venue error, got %d", rr.Code)
	}
}
