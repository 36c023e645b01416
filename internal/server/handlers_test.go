package server

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/book"
	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/history"
	"papertrader/internal/ledger"
	"papertrader/internal/market"
	"papertrader/internal/signal"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	feed := market.NewFeed(market.WithRand(rand.New(rand.NewSource(42))))
	lg := ledger.New(map[string]float64{
		ledger.CashSymbol: 10000,
		"BTC":             0.5,
		"SOL":             10,
	})
	log := zerolog.Nop()

	gen := signal.NewGenerator(nil, time.Second, log)
	eval := engine.NewEvaluator(gen, time.Hour, 0)
	eng := engine.New(feed, lg, book.New(), history.New(), eval, config.Default().Engine, log,
		engine.WithRand(rand.New(rand.NewSource(7))))
	predictor := signal.NewPredictor(feed, nil, time.Second, log)

	return New(config.Default().Server, eng, feed, predictor, log)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestExecute_Success(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/execute", map[string]interface{}{
		"symbol": "BTC",
		"side":   "buy",
		"amount": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "executed", payload["status"])
	assert.NotEmpty(t, payload["trade_id"])
	assert.InDelta(t, 1.0, payload["fees"].(float64), 1e-9)
}

func TestExecute_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/trading/execute", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecute_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/execute", map[string]interface{}{
		"amount": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/execute", map[string]interface{}{
		"symbol": "BTC",
		"side":   "hodl",
		"amount": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecute_DomainFailures(t *testing.T) {
	srv := newTestServer(t)

	// Domain validation failures are 200 with status "failed", not
	// protocol errors.
	cases := []map[string]interface{}{
		{"symbol": "DOGE", "side": "buy", "amount": 1000},
		{"symbol": "BTC", "side": "buy", "amount": -5},
		{"symbol": "BTC", "side": "buy", "amount": 50000},
	}
	for _, body := range cases {
		rec := doJSON(t, srv, http.MethodPost, "/api/trading/execute", body)
		require.Equal(t, http.StatusOK, rec.Code)

		payload := decode(t, rec)
		assert.Equal(t, false, payload["success"])
		assert.Equal(t, "failed", payload["status"])
		assert.NotEmpty(t, payload["message"])
	}
}

func TestClose_FullFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/execute", map[string]interface{}{
		"symbol": "BTC",
		"side":   "buy",
		"amount": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	tradeID := decode(t, rec)["trade_id"].(string)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"trade_id": tradeID,
		"reason":   "manual",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, tradeID, payload["trade_id"])
	assert.Equal(t, "manual", payload["reason"])
	assert.NotZero(t, payload["close_price"])

	// Second close of the same trade is a 404.
	rec = doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"trade_id": tradeID,
		"reason":   "manual",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClose_Validation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"reason": "manual",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"trade_id": "t1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"trade_id": "t1",
		"reason":   "because",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/close", map[string]interface{}{
		"trade_id": "unknown",
		"reason":   "manual",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/execute", map[string]interface{}{
		"symbol": "BTC",
		"side":   "buy",
		"amount": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/trading/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Len(t, payload["open_trades"], 1)
	assert.NotNil(t, payload["trade_history"])
	assert.NotNil(t, payload["auto_closed_trades"])
	assert.Contains(t, payload["portfolio"], "USD")
	assert.Contains(t, payload["current_prices"], "BTC")
	assert.Contains(t, payload["performance"], "win_rate")
}

func TestPortfolioSnapshot(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/trading/execute", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Contains(t, payload["portfolio"], "USD")
	assert.Positive(t, payload["total_value"].(float64))
	assert.Len(t, payload["available_pairs"], 5)
	assert.Equal(t, "0.1%", payload["trading_fees"])
}

func TestMarket(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/trading/market", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Len(t, payload["data"], 5)
	assert.Contains(t, payload["summary"], "btc_dominance")

	rec = doJSON(t, srv, http.MethodGet, "/api/trading/market?symbol=BTC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", decode(t, rec)["symbol"])

	rec = doJSON(t, srv, http.MethodGet, "/api/trading/market?symbol=BTC&historical=true&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 11)

	rec = doJSON(t, srv, http.MethodGet, "/api/trading/market?symbol=XRP", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredict(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/trading/predict", map[string]interface{}{
		"symbol": "ETH",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "ETH", payload["symbol"])
	assert.Contains(t, []interface{}{"buy", "sell", "hold"}, payload["prediction"])
	assert.Contains(t, payload["technical_indicators"], "rsi")
	assert.Contains(t, payload["technical_indicators"], "bb_upper")
	assert.Contains(t, payload["technical_indicators"], "bb_lower")

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/predict", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/trading/predict", map[string]interface{}{
		"symbol": "XRP",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
