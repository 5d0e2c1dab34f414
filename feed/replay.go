package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/market"
)

// replayRow is one line of a replay file:
//
//	time,symbol,price
//	2025-01-06T14:30:00Z,AAPL,185.20
type replayRow struct {
	Time   string `csv:"time"`
	Symbol string `csv:"symbol"`
	Price  string `csv:"price"`
}

// LoadCSV reads a replay file into ticks, preserving file order.
func LoadCSV(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*replayRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse replay csv: %w", err)
	}

	ticks := make([]market.Tick, 0, len(rows))
	for i, r := range rows {
		ts, err := time.Parse(time.RFC3339, r.Time)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time %q: %w", i+1, r.Time, err)
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price %q: %w", i+1, r.Price, err)
		}
		ticks = append(ticks, market.Tick{Symbol: r.Symbol, Price: price, Time: ts})
	}
	return ticks, nil
}

// Replay feeds a fixed tick sequence to the sink, one tick fully
// processed before the next, which is exactly the delivery contract the
// engine assumes.
type Replay struct {
	Ticks []market.Tick
}

func (r *Replay) Run(ctx context.Context, sink Sink) error {
	for _, t := range r.Ticks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := sink(t); err != nil {
			return fmt.Errorf("tick %s@%s: %w", t.Symbol, t.Price, err)
		}
	}
	return nil
}
