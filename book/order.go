package book

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type Kind string

const (
	Market     Kind = "market"
	Limit      Kind = "limit"
	StopLoss   Kind = "stop_loss"
	TakeProfit Kind = "take_profit"
)

// Conditional reports whether the kind waits on a price trigger.
func (k Kind) Conditional() bool {
	return k == Limit || k == StopLoss || k == TakeProfit
}

type Status string

const (
	Pending   Status = "pending"
	Filled    Status = "filled"
	Cancelled Status = "cancelled"
)

// Order is one submitted order. Market orders fill synchronously at
// creation; conditional orders stay pending until a tick satisfies the
// trigger rule or the order is cancelled.
type Order struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Kind      Kind            `json:"kind"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // limit/stop/target reference; zero for market
	Status    Status          `json:"status"`
	Reserved  decimal.Decimal `json:"reserved"` // cash debited at submission for buy-side orders
	CreatedAt time.Time       `json:"created_at"`

	FilledAt  *time.Time       `json:"filled_at,omitempty"`
	FillPrice *decimal.Decimal `json:"fill_price,omitempty"`
}

// Triggered evaluates the trigger rule against the current price.
// Thresholds are inclusive.
//
//	limit buy:        price <= reference
//	limit sell:       price >= reference
//	stop-loss sell:   price <= reference
//	take-profit sell: price >= reference
func (o *Order) Triggered(price decimal.Decimal) bool {
	if o.Status != Pending {
		return false
	}
	switch o.Kind {
	case Limit:
		if o.Side == Buy {
			return price.LessThanOrEqual(o.Price)
		}
		return price.GreaterThanOrEqual(o.Price)
	case StopLoss:
		return price.LessThanOrEqual(o.Price)
	case TakeProfit:
		return price.GreaterThanOrEqual(o.Price)
	}
	return false
}

// ExecutionPrice is the price a triggered order fills at. Limit orders
// fill at the limit itself, not the better market price; stops and
// targets fill at the tick price, simulating slippage-free execution.
func (o *Order) ExecutionPrice(tickPrice decimal.Decimal) decimal.Decimal {
	if o.Kind == Limit {
		return o.Price
	}
	return tickPrice
}
