package snapshot

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/journal"
)

// demoEpoch anchors the seeded history so every first load produces the
// same rows.
var demoEpoch = time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)

// DemoFills is the deterministic seed history backfilled into a record
// whose trade log is empty. Two closed AAPL round trips and one open
// MSFT lot give the analysis side both wins and losses to chew on.
func DemoFills() []journal.Fill {
	rows := []struct {
		id     string
		symbol string
		side   book.Side
		qty    int64
		price  string
		minute int
	}{
		{"demo-0001", "AAPL", book.Buy, 10, "185.20", 0},
		{"demo-0002", "AAPL", book.Sell, 10, "191.75", 95},
		{"demo-0003", "AAPL", book.Buy, 15, "190.40", 180},
		{"demo-0004", "AAPL", book.Sell, 15, "187.10", 260},
		{"demo-0005", "MSFT", book.Buy, 5, "402.00", 300},
	}

	fills := make([]journal.Fill, 0, len(rows))
	for _, r := range rows {
		price := decimal.RequireFromString(r.price)
		fills = append(fills, journal.Fill{
			ID:       r.id,
			OrderID:  r.id,
			Symbol:   r.symbol,
			Side:     r.side,
			Quantity: r.qty,
			Price:    price,
			Total:    price.Mul(decimal.NewFromInt(r.qty)),
			Time:     demoEpoch.Add(time.Duration(r.minute) * time.Minute),
		})
	}
	return fills
}
