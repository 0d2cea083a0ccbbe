// Package risk implements the pre-trade gate applied to every order.
package risk

import (
	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Limits encodes guard-rails for how much size the engine may take on.
type Limits struct {
	MaxNotionalPerSymbol float64
	MaxTotalNotional     float64
}

// Reason explains why the gate rejected an order. Empty means accepted.
type Reason string

const (
	ReasonNoTick       Reason = "no_tick"
	ReasonSymbolCap    Reason = "symbol_cap"
	ReasonTotalCap     Reason = "total_cap"
	ReasonInsufficient Reason = "insufficient_cash"
)

// OrderNotional prices an order against the latest tick: mid for MARKET,
// the limit price (mid when unset) for LIMIT.
func OrderNotional(order execution.OrderRequest, tick market.Tick) float64 {
	px := tick.Mid()
	if order.Type == execution.Limit && order.Price > 0 {
		px = order.Price
	}
	qty := order.Qty
	if qty < 0 {
		qty = -qty
	}
	return qty * px
}

// Check is a pure decision function: it holds no state and mutates
// nothing. Notional exactly at a cap is accepted; only strictly greater
// is rejected.
func Check(order execution.OrderRequest, pf *portfolio.Portfolio, ticks map[string]market.Tick, limits Limits) (bool, Reason) {
	tick, ok := ticks[order.Symbol]
	if !ok {
		return false, ReasonNoTick
	}

	notional := OrderNotional(order, tick)
	if notional > limits.MaxNotionalPerSymbol {
		return false, ReasonSymbolCap
	}
	if pf.TotalExposure(ticks)+notional > limits.MaxTotalNotional {
		return false, ReasonTotalCap
	}
	if order.Side == execution.Buy && pf.Cash() < notional {
		return false, ReasonInsufficient
	}
	return true, ""
}
