// Package engine is the order matching engine: it validates incoming
// orders against the ledger, stores conditional orders in the book, and
// on every price tick fills whatever the tick makes eligible, updating
// ledger and trade log in one step.
package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/pkg/id"
)

// Engine serializes every mutation behind one mutex; each public
// operation runs to completion as a synchronous transaction against the
// shared account/book/journal state. Hosts that receive ticks from
// multiple goroutines get their serialization here.
type Engine struct {
	mu    sync.Mutex
	acct  *ledger.Account
	book  *book.Book
	jrnl  journal.Journal
	ticks *market.TickStore

	startingCash decimal.Decimal
	now          func() time.Time
}

type Option func(*Engine)

// WithClock injects the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(startingCash decimal.Decimal, j journal.Journal, opts ...Option) *Engine {
	e := &Engine{
		acct:         ledger.NewAccount(startingCash),
		book:         book.New(),
		jrnl:         j,
		ticks:        market.NewTickStore(),
		startingCash: startingCash,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MarketOrderRequest opens or closes a position immediately at the
// caller-supplied price. Buy-side requests may carry stop-loss and
// take-profit levels; on fill those become sell-side conditional orders
// tied to the newly acquired quantity.
type MarketOrderRequest struct {
	Symbol     string
	Side       book.Side
	Quantity   int64
	Price      decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Time       time.Time // zero means "now"
}

// ConditionalOrderRequest is a limit, stop-loss or take-profit order.
type ConditionalOrderRequest struct {
	Symbol   string
	Side     book.Side
	Kind     book.Kind
	Quantity int64
	Price    decimal.Decimal
	Time     time.Time
}

func validateCommon(symbol string, side book.Side, quantity int64, price decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if side != book.Buy && side != book.Sell {
		return fmt.Errorf("invalid side %q", side)
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// SubmitMarketOrder validates and fills a market order synchronously.
func (e *Engine) SubmitMarketOrder(req MarketOrderRequest) (journal.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateCommon(req.Symbol, req.Side, req.Quantity, req.Price); err != nil {
		return journal.Fill{}, err
	}

	total := req.Price.Mul(decimal.NewFromInt(req.Quantity))
	if req.Side == book.Buy && !e.acct.CanAfford(total) {
		return journal.Fill{}, ErrInsufficientFunds
	}
	if req.Side == book.Sell && !e.acct.CanSell(req.Symbol, req.Quantity) {
		return journal.Fill{}, ErrInsufficientShares
	}

	now := req.Time
	if now.IsZero() {
		now = e.now()
	}

	o := &book.Order{
		ID:        id.New(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Kind:      book.Market,
		Quantity:  req.Quantity,
		Status:    book.Filled,
		CreatedAt: now,
		FilledAt:  &now,
		FillPrice: &req.Price,
	}

	// Journal first: a storage failure must reject the command with the
	// account and book untouched.
	fill, err := e.recordFill(o, req.Price, now)
	if err != nil {
		return journal.Fill{}, err
	}

	e.book.Add(o)
	if req.Side == book.Buy {
		e.acct.ApplyBuyFill(req.Symbol, req.Quantity, req.Price)
	} else {
		e.acct.ApplySellFill(req.Symbol, req.Quantity, req.Price)
	}

	// Protective exits ride along only on buys; the shares they sell are
	// the ones this order just acquired.
	if req.Side == book.Buy {
		if req.StopLoss != nil {
			e.addConditionalLocked(req.Symbol, book.Sell, book.StopLoss, req.Quantity, *req.StopLoss, now)
		}
		if req.TakeProfit != nil {
			e.addConditionalLocked(req.Symbol, book.Sell, book.TakeProfit, req.Quantity, *req.TakeProfit, now)
		}
	}

	log.WithFields(log.Fields{
		"order":  o.ID,
		"symbol": req.Symbol,
		"side":   req.Side,
		"qty":    req.Quantity,
		"price":  req.Price,
	}).Debug("market order filled")

	return fill, nil
}

// SubmitConditionalOrder stores a pending order in the book. Buy-side
// limit orders reserve quantity*price in cash at submission, refunded in
// full on cancel; sell-side orders check holdings but do not lock shares.
func (e *Engine) SubmitConditionalOrder(req ConditionalOrderRequest) (book.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateCommon(req.Symbol, req.Side, req.Quantity, req.Price); err != nil {
		return book.Order{}, err
	}
	if !req.Kind.Conditional() {
		return book.Order{}, fmt.Errorf("invalid conditional kind %q", req.Kind)
	}
	if req.Kind != book.Limit && req.Side == book.Buy {
		return book.Order{}, fmt.Errorf("%s orders are sell-side only", req.Kind)
	}

	if req.Side == book.Buy {
		total := req.Price.Mul(decimal.NewFromInt(req.Quantity))
		if !e.acct.CanAfford(total) {
			return book.Order{}, ErrInsufficientFunds
		}
	} else if !e.acct.CanSell(req.Symbol, req.Quantity) {
		return book.Order{}, ErrInsufficientShares
	}

	now := req.Time
	if now.IsZero() {
		now = e.now()
	}

	o := e.addConditionalLocked(req.Symbol, req.Side, req.Kind, req.Quantity, req.Price, now)

	log.WithFields(log.Fields{
		"order":  o.ID,
		"symbol": o.Symbol,
		"side":   o.Side,
		"kind":   o.Kind,
		"qty":    o.Quantity,
		"price":  o.Price,
	}).Debug("conditional order pending")

	return *o, nil
}

// addConditionalLocked creates the pending order and takes the buy-side
// cash reservation. Preconditions are the caller's responsibility.
func (e *Engine) addConditionalLocked(symbol string, side book.Side, kind book.Kind, quantity int64, price decimal.Decimal, now time.Time) *book.Order {
	o := &book.Order{
		ID:        id.New(),
		Symbol:    symbol,
		Side:      side,
		Kind:      kind,
		Quantity:  quantity,
		Price:     price,
		Status:    book.Pending,
		CreatedAt: now,
	}
	if side == book.Buy {
		o.Reserved = price.Mul(decimal.NewFromInt(quantity))
		e.acct.ReserveCash(o.Reserved)
	}
	e.book.Add(o)
	return o
}

// Cancel transitions a pending order to cancelled and refunds any cash
// reservation. Cancelling a filled or already-cancelled order fails with
// ErrOrderNotPending and changes nothing.
func (e *Engine) Cancel(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.book.Get(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != book.Pending {
		return ErrOrderNotPending
	}

	o.Status = book.Cancelled
	if o.Reserved.Sign() > 0 {
		e.acct.ReleaseCash(o.Reserved)
	}

	log.WithField("order", o.ID).Debug("order cancelled")
	return nil
}

// OnPriceTick fills every pending order the tick triggers, then marks
// the held position to market. Sell orders whose shares were
// consumed by an intervening manual sell are skipped, not cancelled, and
// retried on the next tick.
func (e *Engine) OnPriceTick(t market.Tick) ([]journal.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.Symbol == "" || t.Price.Sign() <= 0 {
		return nil, fmt.Errorf("invalid tick %+v", t)
	}
	if t.Time.IsZero() {
		t.Time = e.now()
	}

	e.ticks.Set(t)

	var fills []journal.Fill
	for _, o := range e.book.Eligible(t.Symbol, t.Price) {
		if o.Side == book.Sell && !e.acct.CanSell(o.Symbol, o.Quantity) {
			continue
		}

		price := o.ExecutionPrice(t.Price)

		// Journal first: on a storage failure this order stays pending
		// (its reservation intact) and earlier fills on this tick remain
		// committed in both ledger and trade log.
		fill, err := e.recordFill(o, price, t.Time)
		if err != nil {
			e.acct.MarkToMarket(t.Symbol, t.Price)
			return fills, err
		}

		if o.Side == book.Buy {
			// The reservation taken at submission equals quantity*limit,
			// which is exactly what this fill costs.
			e.acct.ReleaseCash(o.Reserved)
			e.acct.ApplyBuyFill(o.Symbol, o.Quantity, price)
		} else {
			e.acct.ApplySellFill(o.Symbol, o.Quantity, price)
		}

		o.Status = book.Filled
		ts := t.Time
		o.FilledAt = &ts
		o.FillPrice = &price

		fills = append(fills, fill)

		log.WithFields(log.Fields{
			"order":  o.ID,
			"symbol": o.Symbol,
			"side":   o.Side,
			"kind":   o.Kind,
			"price":  price,
		}).Debug("conditional order triggered")
	}

	// Marked after the fills: applying a fill stamps the position with
	// its execution price, but the tick is the freshest observation.
	e.acct.MarkToMarket(t.Symbol, t.Price)

	return fills, nil
}

func (e *Engine) recordFill(o *book.Order, price decimal.Decimal, ts time.Time) (journal.Fill, error) {
	f := journal.Fill{
		ID:       id.New(),
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: o.Quantity,
		Price:    price,
		Total:    price.Mul(decimal.NewFromInt(o.Quantity)),
		Time:     ts,
	}
	if err := e.jrnl.RecordFill(f); err != nil {
		return journal.Fill{}, fmt.Errorf("record fill: %w", err)
	}
	return f, nil
}

// AttachNote stores a free-text/voice annotation against an existing
// fill. This is the journal's only permitted post-hoc mutation.
func (e *Engine) AttachNote(fillID string, n journal.Note) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fills, err := e.jrnl.Fills()
	if err != nil {
		return err
	}
	for _, f := range fills {
		if f.ID == fillID {
			return e.jrnl.AttachNote(fillID, n)
		}
	}
	return ErrFillNotFound
}

// Reset clears orders, positions and fills and restores the starting
// cash balance. Watchlist state lives outside the account aggregate and
// is untouched.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.jrnl.Reset(); err != nil {
		return err
	}
	e.acct = ledger.NewAccount(e.startingCash)
	e.book.Reset()
	return nil
}

// ---- queries ----

func (e *Engine) Cash() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Cash
}

// Positions returns the open positions sorted by symbol.
func (e *Engine) Positions() []ledger.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ledger.Position, 0, len(e.acct.Positions))
	for _, p := range e.acct.Positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *Engine) Position(symbol string) (ledger.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.Position(symbol)
}

func (e *Engine) Orders() []book.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Orders()
}

func (e *Engine) PendingOrders() []book.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Pending()
}

func (e *Engine) PortfolioValue() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.PortfolioValue()
}

func (e *Engine) TotalUnrealizedPL() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.TotalUnrealizedPL()
}

func (e *Engine) Fills() ([]journal.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jrnl.Fills()
}

func (e *Engine) Notes() (map[string]journal.Note, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jrnl.Notes()
}

func (e *Engine) LastTick(symbol string) (market.Tick, error) {
	return e.ticks.Get(symbol)
}

func (e *Engine) StartingCash() decimal.Decimal { return e.startingCash }
