package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/journal"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	clock := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	eng := engine.New(decimal.NewFromInt(100000), journal.NewMemory(),
		engine.WithClock(func() time.Time { return clock }))
	return New(eng, nil, nil)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarketOrderAndAccount(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 10, "price": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var fill journal.Fill
	decode(t, w, &fill)
	assert.Equal(t, "AAPL", fill.Symbol)
	assert.EqualValues(t, 10, fill.Quantity)

	w = do(t, s, "GET", "/api/v1/account", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acct accountSummary
	decode(t, w, &acct)
	assert.Equal(t, "98500", acct.Cash)
	assert.Equal(t, 1, acct.OpenPositions)
}

func TestMarketOrderRejections(t *testing.T) {
	s := newTestServer(t)

	// unaffordable, all or nothing
	w := do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 10000, "price": "150",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// malformed side
	w = do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "long", "quantity": 10, "price": "150",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// selling shares we do not hold
	w = do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "sell", "quantity": 1, "price": "150",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestConditionalOrderTriggersOnTick(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 20, "price": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, "POST", "/api/v1/orders/conditional", map[string]any{
		"symbol": "AAPL", "side": "sell", "kind": "limit", "quantity": 5, "price": "165",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, "GET", "/api/v1/orders?pending=true", nil)
	var pending []json.RawMessage
	decode(t, w, &pending)
	require.Len(t, pending, 1)

	w = do(t, s, "POST", "/api/v1/ticks", map[string]any{
		"symbol": "AAPL", "price": "166",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tickResp struct {
		Fills []journal.Fill `json:"fills"`
	}
	decode(t, w, &tickResp)
	require.Len(t, tickResp.Fills, 1)
	assert.True(t, tickResp.Fills[0].Price.Equal(decimal.NewFromInt(165)), "limit fills at the limit price")

	w = do(t, s, "GET", "/api/v1/orders?pending=true", nil)
	pending = nil
	decode(t, w, &pending)
	assert.Empty(t, pending)
}

func TestCancel(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/api/v1/orders/conditional", map[string]any{
		"symbol": "AAPL", "side": "buy", "kind": "limit", "quantity": 10, "price": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order struct {
		ID string `json:"id"`
	}
	decode(t, w, &order)
	require.NotEmpty(t, order.ID)

	w = do(t, s, "POST", "/api/v1/orders/cancel", map[string]any{"order_id": order.ID})
	assert.Equal(t, http.StatusOK, w.Code)

	// cancelling again is rejected: the order is no longer pending
	w = do(t, s, "POST", "/api/v1/orders/cancel", map[string]any{"order_id": order.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// unknown id
	w = do(t, s, "POST", "/api/v1/orders/cancel", map[string]any{"order_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachNote(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 1, "price": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var fill journal.Fill
	decode(t, w, &fill)

	w = do(t, s, "POST", fmt.Sprintf("/api/v1/fills/%s/note", fill.ID), map[string]any{
		"text": "bought the dip",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "POST", "/api/v1/fills/missing/note", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// note comes back merged into the fill listing
	w = do(t, s, "GET", "/api/v1/fills", nil)
	var fills []struct {
		ID   string        `json:"id"`
		Note *journal.Note `json:"note"`
	}
	decode(t, w, &fills)
	require.Len(t, fills, 1)
	require.NotNil(t, fills[0].Note)
	assert.Equal(t, "bought the dip", fills[0].Note.Text)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)

	buy := map[string]any{"symbol": "AAPL", "side": "buy", "quantity": 10, "price": "150"}
	sell := map[string]any{"symbol": "AAPL", "side": "sell", "quantity": 10, "price": "160"}
	require.Equal(t, http.StatusCreated, do(t, s, "POST", "/api/v1/orders/market", buy).Code)
	require.Equal(t, http.StatusCreated, do(t, s, "POST", "/api/v1/orders/market", sell).Code)

	w := do(t, s, "GET", "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,asset,side,quantity,entry_price,exit_price,profit_loss,balance", lines[0])
	assert.Contains(t, lines[1], "AAPL,SELL,10,150,160,100,100100")
}

func TestWatchlistSurvivesReset(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK,
		do(t, s, "POST", "/api/v1/watchlist", map[string]any{"symbol": "TSLA"}).Code)
	require.Equal(t, http.StatusOK,
		do(t, s, "POST", "/api/v1/watchlist", map[string]any{"symbol": "AAPL"}).Code)

	require.Equal(t, http.StatusCreated, do(t, s, "POST", "/api/v1/orders/market", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 10, "price": "150",
	}).Code)

	w := do(t, s, "POST", "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acct accountSummary
	decode(t, w, &acct)
	assert.Equal(t, "100000", acct.Cash)
	assert.Equal(t, 0, acct.OpenPositions)

	w = do(t, s, "GET", "/api/v1/watchlist", nil)
	var symbols []string
	decode(t, w, &symbols)
	assert.Equal(t, []string{"AAPL", "TSLA"}, symbols)

	w = do(t, s, "DELETE", "/api/v1/watchlist/TSLA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	symbols = nil
	decode(t, w, &symbols)
	assert.Equal(t, []string{"AAPL"}, symbols)
}
