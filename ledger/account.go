// Package ledger owns the cash balance and position set of the paper
// account. It applies the monetary effect of fills and answers solvency
// queries; all precondition checks (affordability, holdings) are the
// caller's job, so every method here is side-effect-only and total.
package ledger

import (
	"github.com/shopspring/decimal"
)

// Position is an open holding in one symbol. A position with zero
// quantity never exists in the account map; it is removed instead.
type Position struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// MarketValue is quantity * lastPrice.
func (p Position) MarketValue() decimal.Decimal {
	return p.LastPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedPL is (lastPrice - avgCost) * quantity.
func (p Position) UnrealizedPL() decimal.Decimal {
	return p.LastPrice.Sub(p.AvgCost).Mul(decimal.NewFromInt(p.Quantity))
}

// Account is the single paper-trading account aggregate.
type Account struct {
	Cash      decimal.Decimal      `json:"cash"`
	Positions map[string]*Position `json:"positions"`
}

func NewAccount(startingCash decimal.Decimal) *Account {
	return &Account{
		Cash:      startingCash,
		Positions: make(map[string]*Position),
	}
}

// CanAfford reports whether total can be debited without going negative.
func (a *Account) CanAfford(total decimal.Decimal) bool {
	return total.LessThanOrEqual(a.Cash)
}

// CanSell reports whether an open position covers quantity shares.
func (a *Account) CanSell(symbol string, quantity int64) bool {
	p, ok := a.Positions[symbol]
	return ok && p.Quantity >= quantity
}

// ApplyBuyFill debits cash and merges the lot into the position using a
// quantity-weighted average cost:
//
//	avgCost' = (avgCost*qty + price*fillQty) / (qty + fillQty)
func (a *Account) ApplyBuyFill(symbol string, quantity int64, price decimal.Decimal) {
	qty := decimal.NewFromInt(quantity)
	a.Cash = a.Cash.Sub(price.Mul(qty))

	p, ok := a.Positions[symbol]
	if !ok {
		a.Positions[symbol] = &Position{
			Symbol:    symbol,
			Quantity:  quantity,
			AvgCost:   price,
			LastPrice: price,
		}
		return
	}

	oldQty := decimal.NewFromInt(p.Quantity)
	newQty := oldQty.Add(qty)
	p.AvgCost = p.AvgCost.Mul(oldQty).Add(price.Mul(qty)).Div(newQty)
	p.Quantity += quantity
	p.LastPrice = price
}

// ApplySellFill credits cash and decrements the position, removing it at
// zero. Average cost is untouched on sells; only quantity and valuation
// change.
func (a *Account) ApplySellFill(symbol string, quantity int64, price decimal.Decimal) {
	a.Cash = a.Cash.Add(price.Mul(decimal.NewFromInt(quantity)))

	p, ok := a.Positions[symbol]
	if !ok {
		return
	}
	p.Quantity -= quantity
	p.LastPrice = price
	if p.Quantity <= 0 {
		delete(a.Positions, symbol)
	}
}

// ReserveCash debits cash committed to a pending buy-side order.
func (a *Account) ReserveCash(total decimal.Decimal) {
	a.Cash = a.Cash.Sub(total)
}

// ReleaseCash refunds a reservation made with ReserveCash.
func (a *Account) ReleaseCash(total decimal.Decimal) {
	a.Cash = a.Cash.Add(total)
}

// MarkToMarket updates the held position's valuation from the latest
// price, independent of any fill. No-op when the symbol is not held.
func (a *Account) MarkToMarket(symbol string, price decimal.Decimal) {
	if p, ok := a.Positions[symbol]; ok {
		p.LastPrice = price
	}
}

// Position returns a copy of the held position for symbol.
func (a *Account) Position(symbol string) (Position, bool) {
	p, ok := a.Positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Held returns the quantity currently held of symbol, zero if none.
func (a *Account) Held(symbol string) int64 {
	p, ok := a.Positions[symbol]
	if !ok {
		return 0
	}
	return p.Quantity
}

// PortfolioValue is cash plus the market value of every position.
func (a *Account) PortfolioValue() decimal.Decimal {
	total := a.Cash
	for _, p := range a.Positions {
		total = total.Add(p.MarketValue())
	}
	return total
}

// TotalUnrealizedPL sums unrealized P&L across positions.
func (a *Account) TotalUnrealizedPL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Positions {
		total = total.Add(p.UnrealizedPL())
	}
	return total
}
