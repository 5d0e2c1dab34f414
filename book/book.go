// Package book stores pending conditional orders and evaluates which of
// them a price tick makes eligible to fill.
package book

import (
	"github.com/shopspring/decimal"
)

// Book holds every order ever submitted, in submission order. Filled and
// cancelled orders are kept for querying; only pending ones are scanned.
type Book struct {
	orders []*Order
	byID   map[string]*Order
}

func New() *Book {
	return &Book{byID: make(map[string]*Order)}
}

func (b *Book) Add(o *Order) {
	b.orders = append(b.orders, o)
	b.byID[o.ID] = o
}

func (b *Book) Get(id string) (*Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

// Orders returns copies of every order, oldest first.
func (b *Book) Orders() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}

// Pending returns copies of all pending conditional orders, oldest first.
func (b *Book) Pending() []Order {
	var out []Order
	for _, o := range b.orders {
		if o.Status == Pending {
			out = append(out, *o)
		}
	}
	return out
}

// Eligible returns the pending orders on symbol whose trigger rule is
// satisfied at price, in submission order. All eligible orders on a tick
// fill; there is no other ordering guarantee between them. Holdings
// sufficiency for sell sides is deliberately not checked here — the
// engine skips short sells and retries on the next tick.
func (b *Book) Eligible(symbol string, price decimal.Decimal) []*Order {
	var out []*Order
	for _, o := range b.orders {
		if o.Symbol == symbol && o.Triggered(price) {
			out = append(out, o)
		}
	}
	return out
}

// Reset drops every order.
func (b *Book) Reset() {
	b.orders = nil
	b.byID = make(map[string]*Order)
}

// Load replaces the book contents, used when restoring a snapshot.
func (b *Book) Load(orders []Order) {
	b.Reset()
	for i := range orders {
		o := orders[i]
		b.Add(&o)
	}
}
