package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/market"
)

func writeReplayFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	path := writeReplayFile(t, `time,symbol,price
2025-03-03T14:30:00Z,AAPL,150.25
2025-03-03T14:31:00Z,MSFT,402
2025-03-03T14:32:00Z,AAPL,151.10
`)

	ticks, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, ticks, 3)

	assert.Equal(t, "AAPL", ticks[0].Symbol)
	assert.True(t, ticks[0].Price.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC), ticks[0].Time)
	assert.Equal(t, "MSFT", ticks[1].Symbol)
}

func TestLoadCSVRejectsBadRows(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(writeReplayFile(t, "time,symbol,price\nnot-a-time,AAPL,150\n"))
	assert.Error(t, err)

	_, err = LoadCSV(writeReplayFile(t, "time,symbol,price\n2025-03-03T14:30:00Z,AAPL,abc\n"))
	assert.Error(t, err)
}

func TestReplayDeliversInOrder(t *testing.T) {
	t.Parallel()

	ticks := []market.Tick{
		{Symbol: "AAPL", Price: decimal.NewFromInt(150)},
		{Symbol: "AAPL", Price: decimal.NewFromInt(151)},
		{Symbol: "MSFT", Price: decimal.NewFromInt(400)},
	}

	var got []market.Tick
	r := &Replay{Ticks: ticks}
	err := r.Run(context.Background(), func(t market.Tick) error {
		got = append(got, t)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ticks, got)
}

func TestReplayStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Replay{Ticks: []market.Tick{{Symbol: "AAPL", Price: decimal.NewFromInt(1)}}}
	err := r.Run(ctx, func(market.Tick) error {
		t.Fatal("sink must not be called after cancel")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type staticSource struct {
	ticks map[string]market.Tick
}

func (s *staticSource) GetTick(ctx context.Context, symbol string) (market.Tick, error) {
	t, ok := s.ticks[symbol]
	if !ok {
		return market.Tick{}, market.ErrNoPrice
	}
	return t, nil
}

func TestPollerSkipsMissingSymbols(t *testing.T) {
	t.Parallel()

	src := &staticSource{ticks: map[string]market.Tick{
		"AAPL": {Symbol: "AAPL", Price: decimal.NewFromInt(150)},
	}}

	var got []string
	p := &Poller{
		Source:  src,
		Symbols: []string{"AAPL", "UNKNOWN", "AAPL"},
		Sink: func(t market.Tick) error {
			got = append(got, t.Symbol)
			return nil
		},
	}
	p.pollOnce(context.Background())

	assert.Equal(t, []string{"AAPL", "AAPL"}, got, "unknown symbols are skipped, not fatal")
}
