// Package feed drives the engine with ticks. The actual source of
// prices is an external collaborator behind market.TickSource; this
// package only owns the cadence (polling) and deterministic replay.
package feed

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/market"
)

// Sink receives each resolved tick; in practice it wraps
// engine.OnPriceTick.
type Sink func(market.Tick) error

// Poller asks the source for the latest price of every tracked symbol on
// a fixed interval and hands each tick to the sink, one at a time.
type Poller struct {
	Source   market.TickSource
	Symbols  []string
	Interval time.Duration
	Sink     Sink
}

// Run polls until ctx is cancelled. A failed lookup or rejected tick is
// logged and skipped; the loop never stops on per-symbol errors.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	for _, symbol := range p.Symbols {
		t, err := p.Source.GetTick(ctx, symbol)
		if err != nil {
			log.WithField("symbol", symbol).WithError(err).Warn("tick lookup failed")
			continue
		}
		if err := p.Sink(t); err != nil {
			log.WithField("symbol", symbol).WithError(err).Warn("tick rejected")
		}
	}
}
