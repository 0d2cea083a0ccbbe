// Package portfolio tracks cash and per-symbol average-cost positions.
package portfolio

import (
	"sync"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
)

// Position is a signed base-asset holding for one symbol.
type Position struct {
	Qty      float64
	AvgPrice float64
}

// Portfolio owns all positions exclusively; state changes only through
// OnFill. It is safe for concurrent readers (snapshots, metrics) even
// though the engine loop is the only writer.
type Portfolio struct {
	mu        sync.Mutex
	quoteCcy  string
	cash      float64
	positions map[string]Position
}

// Snapshot is a read-only copy of portfolio state handed to strategies.
type Snapshot struct {
	QuoteCcy  string
	Cash      float64
	Positions map[string]Position
}

// New constructs a portfolio with initial cash and no positions.
func New(quoteCcy string, initialCash float64) *Portfolio {
	return &Portfolio{
		quoteCcy:  quoteCcy,
		cash:      initialCash,
		positions: make(map[string]Position),
	}
}

// QuoteCcy returns the currency cash and notionals are denominated in.
func (p *Portfolio) QuoteCcy() string { return p.quoteCcy }

// Cash returns the current free cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns the holding for symbol, zero-valued when flat.
func (p *Portfolio) Position(symbol string) Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol]
}

// OnFill applies a fill to cash and the symbol's position. Buys accumulate
// a volume-weighted average price; sells reduce quantity without touching
// the average, resetting it to 0 when the position goes flat. A fill that
// pushes quantity through zero closes the old leg and re-opens the
// remainder at the fill price.
func (p *Portfolio) OnFill(fill execution.Fill) {
	if fill.Qty == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.positions[fill.Symbol]
	notional := fill.Qty * fill.Price
	newQty := pos.Qty + fill.Qty

	switch {
	case crossesZero(pos.Qty, newQty):
		// Sign flip: the surviving leg's cost basis is the fill price.
		pos = Position{Qty: newQty, AvgPrice: fill.Price}
	case sameDirection(pos.Qty, fill.Qty):
		pos.AvgPrice = (pos.AvgPrice*abs(pos.Qty) + abs(notional)) / abs(newQty)
		pos.Qty = newQty
	default:
		// Reducing toward zero keeps the cost basis.
		pos.Qty = newQty
		if pos.Qty == 0 {
			pos.AvgPrice = 0
		}
	}

	p.cash -= notional
	p.positions[fill.Symbol] = pos
}

// MarkToMarket returns cash plus the mid-priced value of every position
// with a current tick. Positions without a tick contribute zero.
func (p *Portfolio) MarkToMarket(ticks map[string]market.Tick) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	equity := p.cash
	for sym, pos := range p.positions {
		if tick, ok := ticks[sym]; ok {
			equity += pos.Qty * tick.Mid()
		}
	}
	return equity
}

// ExposureNotional returns |qty*mid| for symbol, or 0 without a position
// or tick.
func (p *Portfolio) ExposureNotional(symbol string, ticks map[string]market.Tick) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[symbol]
	if !ok {
		return 0
	}
	tick, ok := ticks[symbol]
	if !ok {
		return 0
	}
	return abs(pos.Qty * tick.Mid())
}

// TotalExposure sums ExposureNotional over all held symbols with ticks.
func (p *Portfolio) TotalExposure(ticks map[string]market.Tick) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total float64
	for sym, pos := range p.positions {
		if tick, ok := ticks[sym]; ok {
			total += abs(pos.Qty * tick.Mid())
		}
	}
	return total
}

// Snapshot copies current state for strategies to inspect without holding
// the portfolio lock.
func (p *Portfolio) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions := make(map[string]Position, len(p.positions))
	for sym, pos := range p.positions {
		positions[sym] = pos
	}
	return Snapshot{QuoteCcy: p.quoteCcy, Cash: p.cash, Positions: positions}
}

func sameDirection(a, b float64) bool {
	return a == 0 || (a > 0) == (b > 0)
}

func crossesZero(before, after float64) bool {
	return before != 0 && after != 0 && (before > 0) != (after > 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
