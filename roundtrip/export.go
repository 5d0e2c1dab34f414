package roundtrip

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// analysisRow matches the column set and ordering the behavioral scoring
// service ingests. Do not reorder or rename the fields.
type analysisRow struct {
	Timestamp  string `csv:"timestamp"`
	Asset      string `csv:"asset"`
	Side       string `csv:"side"`
	Quantity   int64  `csv:"quantity"`
	EntryPrice string `csv:"entry_price"`
	ExitPrice  string `csv:"exit_price"`
	ProfitLoss string `csv:"profit_loss"`
	Balance    string `csv:"balance"`
}

// WriteAnalysisCSV folds a running balance over the reconciled round
// trips, oldest first, and writes the analysis CSV.
func WriteAnalysisCSV(w io.Writer, trips []RoundTrip, startingBalance decimal.Decimal) error {
	ordered := make([]RoundTrip, len(trips))
	copy(ordered, trips)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ClosedAt.Before(ordered[j].ClosedAt)
	})

	balance := startingBalance
	rows := make([]*analysisRow, 0, len(ordered))
	for _, t := range ordered {
		balance = balance.Add(t.PnL)
		rows = append(rows, &analysisRow{
			Timestamp:  t.ClosedAt.UTC().Format(time.DateTime),
			Asset:      t.Symbol,
			Side:       strings.ToUpper(string(t.ClosingSide)),
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice.String(),
			ExitPrice:  t.ExitPrice.String(),
			ProfitLoss: t.PnL.String(),
			Balance:    balance.String(),
		})
	}

	return gocsv.Marshal(rows, w)
}
