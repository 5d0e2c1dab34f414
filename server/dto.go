package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/book"
)

// Request/response shapes for the browser host. Money values cross the
// wire as strings so the client never sees float rounding.

type marketOrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	Price      string  `json:"price"`
	StopLoss   *string `json:"stop_loss,omitempty"`
	TakeProfit *string `json:"take_profit,omitempty"`
}

type conditionalOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Kind     string `json:"kind"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
}

type cancelRequest struct {
	OrderID string `json:"order_id"`
}

type tickRequest struct {
	Symbol string    `json:"symbol"`
	Price  string    `json:"price"`
	Time   time.Time `json:"time,omitempty"`
}

type noteRequest struct {
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type watchlistRequest struct {
	Symbol string `json:"symbol"`
}

type accountSummary struct {
	Cash           string `json:"cash"`
	PortfolioValue string `json:"portfolio_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	OpenPositions  int    `json:"open_positions"`
	PendingOrders  int    `json:"pending_orders"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func parseSide(s string) (book.Side, bool) {
	switch book.Side(s) {
	case book.Buy, book.Sell:
		return book.Side(s), true
	}
	return "", false
}

func parseKind(s string) (book.Kind, bool) {
	k := book.Kind(s)
	if k.Conditional() {
		return k, true
	}
	return "", false
}

func parsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return decimal.Decimal{}, false
	}
	return d, true
}
