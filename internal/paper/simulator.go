// Package paper simulates order execution against the latest top of book.
package paper

import (
	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Simulator fills orders at the quoted top of book, assuming infinite
// liquidity and no partial fills. Limit orders that do not cross the
// spread are dropped, not queued.
type Simulator struct {
	pf          *portfolio.Portfolio
	slippageBps float64
}

// NewSimulator wraps a portfolio with a slippage setting in basis points.
func NewSimulator(pf *portfolio.Portfolio, slippageBps float64) *Simulator {
	return &Simulator{pf: pf, slippageBps: slippageBps}
}

// Execute attempts to fill order against the latest tick for its symbol.
// It returns nil when no tick exists or a limit price does not cross; on
// fill the portfolio is mutated before the fill is returned.
func (s *Simulator) Execute(order execution.OrderRequest, book *market.Book) *execution.Fill {
	tick, ok := book.Get(order.Symbol)
	if !ok {
		return nil
	}

	var px float64
	if order.Type == execution.Market {
		if order.Side == execution.Buy {
			px = s.applySlippage(tick.Ask, execution.Buy)
		} else {
			px = s.applySlippage(tick.Bid, execution.Sell)
		}
	} else {
		px = order.Price
		if px <= 0 {
			px = tick.Mid()
		}
		if order.Side == execution.Buy && px < tick.Ask {
			return nil
		}
		if order.Side == execution.Sell && px > tick.Bid {
			return nil
		}
	}

	qty := order.Qty
	if qty < 0 {
		qty = -qty
	}
	if order.Side == execution.Sell {
		qty = -qty
	}

	fill := &execution.Fill{
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      qty,
		Price:    px,
		TsMs:     tick.TsMs,
		ClientID: order.ClientID,
	}
	s.pf.OnFill(*fill)
	return fill
}

func (s *Simulator) applySlippage(px float64, side execution.Side) float64 {
	if s.slippageBps <= 0 {
		return px
	}
	slip := px * (s.slippageBps / 10000.0)
	if side == execution.Buy {
		return px + slip
	}
	return px - slip
}
