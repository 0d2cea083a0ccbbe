package strategy

import (
	"math"
	"sync"

	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/market"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

// Rebalancer holds each symbol at an equal share of a target gross
// notional, trading only when drift exceeds a fraction of the target.
type Rebalancer struct {
	symbols     []string
	targetGross float64
	driftFrac   float64
	cooldownMs  int64

	mu           sync.Mutex
	lastActionMs map[string]int64
}

// NewRebalancer builds an equal-weight rebalancer from params.
func NewRebalancer(params Params) *Rebalancer {
	r := &Rebalancer{
		symbols:      lowerAll(params.Symbols),
		targetGross:  params.TargetGrossNotional,
		driftFrac:    params.RebalanceDriftFrac,
		cooldownMs:   int64(params.CooldownSec * 1000),
		lastActionMs: make(map[string]int64),
	}
	if r.driftFrac <= 0 {
		r.driftFrac = 0.10
	}
	if r.cooldownMs <= 0 {
		r.cooldownMs = 5000
	}
	return r
}

// Name returns the identifier for the strategy implementation.
func (r *Rebalancer) Name() string { return "Rebalancer" }

// GenerateOrders emits a market order sized to close the drift between
// the current position notional and the per-symbol target.
func (r *Rebalancer) GenerateOrders(tick market.Tick, pf portfolio.Snapshot) []execution.OrderRequest {
	mid := tick.Mid()
	if tick.Symbol == "" || mid <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tick.TsMs-r.lastActionMs[tick.Symbol] < r.cooldownMs {
		return nil
	}

	n := len(r.symbols)
	if n < 1 {
		n = 1
	}
	target := r.targetGross / float64(n)
	if target <= 0 {
		return nil
	}

	currNotional := pf.Positions[tick.Symbol].Qty * mid
	drift := target - currNotional
	if math.Abs(drift) < r.driftFrac*target {
		return nil
	}

	side := execution.Buy
	if drift < 0 {
		side = execution.Sell
	}
	r.lastActionMs[tick.Symbol] = tick.TsMs
	return []execution.OrderRequest{{
		Symbol: tick.Symbol,
		Side:   side,
		Type:   execution.Market,
		Qty:    math.Abs(drift) / mid,
	}}
}
