// Package strategy contains order generation logic wired into ticks.
package strategy

import (
	"strings"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Strategy turns ticks into order requests. Implementations are called
// once per tick from the engine loop and must not block.
type Strategy interface {
	GenerateOrders(tick market.Tick, pf portfolio.Snapshot) []execution.OrderRequest
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Symbols             []string
	TargetGrossNotional float64
	OBIThreshold        float64
	MomLookback         int
	MomThreshold        float64
	TradeFrac           float64
	CooldownSec         float64
	MaxPosMult          float64
	MinTradeNotional    float64
	RebalanceDriftFrac  float64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "rebalance", "equal_weight", "rebalancer":
		return NewRebalancer(params)
	default:
		return NewOBIMomentum(params)
	}
}
