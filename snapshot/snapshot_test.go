package snapshot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)

func sessionState(t *testing.T) engine.State {
	t.Helper()

	eng := engine.New(d("100000"), journal.NewMemory())
	_, err := eng.SubmitMarketOrder(engine.MarketOrderRequest{
		Symbol: "AAPL", Side: book.Buy, Quantity: 10, Price: d("150"), Time: t0,
	})
	require.NoError(t, err)
	_, err = eng.SubmitConditionalOrder(engine.ConditionalOrderRequest{
		Symbol: "AAPL", Side: book.Sell, Kind: book.Limit, Quantity: 5, Price: d("165"), Time: t0,
	})
	require.NoError(t, err)

	st, err := eng.State()
	require.NoError(t, err)
	return st
}

func TestStoreSaveAndLoadLatest(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, found, err := store.LoadLatest()
	require.NoError(t, err)
	assert.False(t, found, "empty store has no record")

	st := sessionState(t)
	require.NoError(t, store.Save(NewRecord(st, []string{"AAPL", "NVDA"}, t0)))

	// A later save wins.
	st2 := sessionState(t)
	rec2 := NewRecord(st2, []string{"AAPL"}, t0.Add(time.Hour))
	require.NoError(t, store.Save(rec2))

	got, found, err := store.LoadLatest()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, []string{"AAPL"}, got.Watchlist)
	assert.True(t, got.State.Account.Cash.Equal(st2.Account.Cash))
	assert.Len(t, got.State.Orders, 2)
	assert.Len(t, got.State.Fills, 1)
}

func TestRestoredStateDrivesEngine(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Save(NewRecord(sessionState(t), nil, t0)))

	rec, found, err := store.LoadLatest()
	require.NoError(t, err)
	require.True(t, found)

	eng := engine.New(d("100000"), journal.NewMemory())
	require.NoError(t, eng.Restore(rec.State))

	fills, err := eng.OnPriceTick(market.Tick{Symbol: "AAPL", Price: d("166"), Time: t0.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, fills, 1, "restored pending limit sell must still trigger")
	assert.True(t, fills[0].Price.Equal(d("165")))
}

func TestMigrateSeedsEmptyTradeLog(t *testing.T) {
	t.Parallel()

	rec := Record{
		SchemaVersion: 1,
		SavedAt:       t0,
		State: engine.State{
			Account: sessionState(t).Account,
		},
	}
	require.NoError(t, Migrate(&rec))

	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.NotNil(t, rec.Watchlist, "v1 records gain an empty watchlist")
	assert.NotEmpty(t, rec.State.Fills, "empty trade log is seeded with the demo history")
	assert.Equal(t, DemoFills(), rec.State.Fills, "seed must be deterministic")
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	rec := Record{SchemaVersion: SchemaVersion + 1}
	assert.Error(t, Migrate(&rec))
}

func TestMigrateKeepsExistingFills(t *testing.T) {
	t.Parallel()

	st := sessionState(t)
	rec := NewRecord(st, []string{"AAPL"}, t0)
	require.NoError(t, Migrate(&rec))
	assert.Equal(t, st.Fills, rec.State.Fills, "non-empty log is never reseeded")
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	rec := NewRecord(sessionState(t), []string{"AAPL"}, t0)
	require.NoError(t, SaveFile(path, rec))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Watchlist, got.Watchlist)
	assert.True(t, got.State.Account.Cash.Equal(rec.State.Account.Cash))
	assert.Len(t, got.State.Orders, 2)
}
