// Package roundtrip projects the trade log into closed round-trip trades
// via FIFO lot matching. It is a pure read-time projection: nothing here
// is stored, and reconciling the same log twice yields identical output.
package roundtrip

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/journal"
)

// RoundTrip is one closed buy→sell (or sell→buy) pairing.
type RoundTrip struct {
	Symbol      string          `json:"symbol"`
	ClosingSide book.Side       `json:"closing_side"`
	Quantity    int64           `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	PnL         decimal.Decimal `json:"pnl"`
	ClosedAt    time.Time       `json:"closed_at"`
}

// lot is an open entry awaiting an opposite-side fill.
type lot struct {
	side     book.Side
	quantity int64
	price    decimal.Decimal
}

// Reconcile matches fills per symbol in timestamp order. Each fill on
// the opposite side of the open queue consumes lots from the front,
// splitting the last one when quantities differ, and emits one RoundTrip
// per (fill, consumed-lot) pairing. Unmatched remainder opens a new lot.
func Reconcile(fills []journal.Fill) []RoundTrip {
	ordered := make([]journal.Fill, len(fills))
	copy(ordered, fills)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Time.Equal(ordered[j].Time) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Time.Before(ordered[j].Time)
	})

	queues := make(map[string][]lot)
	var trips []RoundTrip

	for _, f := range ordered {
		q := queues[f.Symbol]
		remaining := f.Quantity

		for remaining > 0 && len(q) > 0 && q[0].side != f.Side {
			open := &q[0]
			matched := remaining
			if open.quantity < matched {
				matched = open.quantity
			}

			// Long round trips profit when exit > entry; short round
			// trips (opened by a sell, closed by a buy) the reverse.
			pnl := f.Price.Sub(open.price).Mul(decimal.NewFromInt(matched))
			if open.side == book.Sell {
				pnl = pnl.Neg()
			}

			trips = append(trips, RoundTrip{
				Symbol:      f.Symbol,
				ClosingSide: f.Side,
				Quantity:    matched,
				EntryPrice:  open.price,
				ExitPrice:   f.Price,
				PnL:         pnl,
				ClosedAt:    f.Time,
			})

			open.quantity -= matched
			remaining -= matched
			if open.quantity == 0 {
				q = q[1:]
			}
		}

		if remaining > 0 {
			q = append(q, lot{side: f.Side, quantity: remaining, price: f.Price})
		}
		queues[f.Symbol] = q
	}

	return trips
}
