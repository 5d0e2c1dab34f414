package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuyFillOpensPosition(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("100000"))
	a.ApplyBuyFill("AAPL", 10, d("150"))

	assert.True(t, a.Cash.Equal(d("98500")), "cash = %s", a.Cash)

	p, ok := a.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(10), p.Quantity)
	assert.True(t, p.AvgCost.Equal(d("150")))
}

func TestBuyFillRecomputesWeightedAverage(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("100000"))
	a.ApplyBuyFill("AAPL", 10, d("150"))
	a.ApplyBuyFill("AAPL", 10, d("170"))

	p, ok := a.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(20), p.Quantity)
	assert.True(t, p.AvgCost.Equal(d("160")), "avgCost = %s", p.AvgCost)
	assert.True(t, a.Cash.Equal(d("96800")), "cash = %s", a.Cash)
}

func TestSellFillKeepsAvgCost(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("100000"))
	a.ApplyBuyFill("AAPL", 10, d("150"))
	a.ApplyBuyFill("AAPL", 10, d("170"))
	a.ApplySellFill("AAPL", 5, d("165"))

	p, ok := a.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(15), p.Quantity)
	assert.True(t, p.AvgCost.Equal(d("160")), "avgCost must not change on sells")
}

func TestSellToZeroRemovesPosition(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("10000"))
	a.ApplyBuyFill("MSFT", 5, d("400"))
	a.ApplySellFill("MSFT", 5, d("410"))

	_, ok := a.Position("MSFT")
	assert.False(t, ok)
	assert.True(t, a.Cash.Equal(d("10050")), "cash = %s", a.Cash)
}

func TestCanAffordAndCanSell(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("1000"))
	assert.True(t, a.CanAfford(d("1000")))
	assert.False(t, a.CanAfford(d("1000.01")))

	assert.False(t, a.CanSell("AAPL", 1))
	a.ApplyBuyFill("AAPL", 3, d("100"))
	assert.True(t, a.CanSell("AAPL", 3))
	assert.False(t, a.CanSell("AAPL", 4))
}

func TestReserveAndRelease(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("5000"))
	a.ReserveCash(d("3000"))
	assert.True(t, a.Cash.Equal(d("2000")))
	a.ReleaseCash(d("3000"))
	assert.True(t, a.Cash.Equal(d("5000")))
}

func TestMarkToMarket(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("100000"))
	a.ApplyBuyFill("AAPL", 10, d("150"))
	a.MarkToMarket("AAPL", d("158"))

	p, _ := a.Position("AAPL")
	assert.True(t, p.LastPrice.Equal(d("158")))
	assert.True(t, p.MarketValue().Equal(d("1580")))
	assert.True(t, p.UnrealizedPL().Equal(d("80")))

	// marking an unheld symbol is a no-op
	a.MarkToMarket("TSLA", d("999"))
	_, ok := a.Position("TSLA")
	assert.False(t, ok)
}

func TestPortfolioValueIdentity(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("100000"))
	a.ApplyBuyFill("AAPL", 10, d("150"))
	a.ApplyBuyFill("MSFT", 5, d("400"))
	a.MarkToMarket("AAPL", d("155"))
	a.MarkToMarket("MSFT", d("395"))

	want := a.Cash
	for _, sym := range []string{"AAPL", "MSFT"} {
		p, ok := a.Position(sym)
		if ok {
			want = want.Add(p.MarketValue())
		}
	}
	assert.True(t, a.PortfolioValue().Equal(want))
}

func TestQuantityConservation(t *testing.T) {
	t.Parallel()

	a := NewAccount(d("1000000"))
	var bought, sold int64
	steps := []struct {
		buy bool
		qty int64
	}{
		{true, 10}, {true, 7}, {false, 5}, {true, 3}, {false, 9},
	}
	for _, s := range steps {
		if s.buy {
			a.ApplyBuyFill("AAPL", s.qty, d("100"))
			bought += s.qty
		} else {
			a.ApplySellFill("AAPL", s.qty, d("100"))
			sold += s.qty
		}
	}
	assert.Equal(t, bought-sold, a.Held("AAPL"))
}
